package ids

import (
	"crypto/rand"
	"encoding/binary"
)

// NewSiteID mints a random 64-bit site identifier for a freshly created
// store. It is persisted by the caller (the store's metadata table) and
// never changes for the life of that store.
func NewSiteID() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on a supported platform does not fail; if it
		// somehow does, degrade to a time-derived value rather than panic.
		return uint64(NewClock().Now())
	}
	return binary.BigEndian.Uint64(buf[:])
}
