package broker

import (
	"os"

	"github.com/rs/zerolog"
)

// logLevel reads WK_LOG_LEVEL (trace/debug/info/warn/error), defaulting
// to info when unset or unparseable.
func logLevel() zerolog.Level {
	if lvl, err := zerolog.ParseLevel(os.Getenv("WK_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}
	return zerolog.InfoLevel
}
