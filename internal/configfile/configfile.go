// Package configfile loads and saves a store's config.toml: the
// id prefix and an optional [remote] section selecting a transport carrier.
package configfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the config file's name within the store directory.
const FileName = "config.toml"

// RemoteConfig is the optional [remote] section. An absent section (Remote
// == nil after Load) selects a local-only store: no Sync Daemon is
// started for it.
type RemoteConfig struct {
	URL    string `toml:"url"`
	Branch string `toml:"branch,omitempty"`
}

// Config is the parsed contents of config.toml.
type Config struct {
	Prefix string        `toml:"prefix"`
	Remote *RemoteConfig `toml:"remote,omitempty"`
}

// Path returns the config.toml path within storeDir.
func Path(storeDir string) string {
	return filepath.Join(storeDir, FileName)
}

// Load reads and parses config.toml from storeDir.
func Load(storeDir string) (*Config, error) {
	path := Path(storeDir)
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to storeDir's config.toml.
func (c *Config) Save(storeDir string) error {
	path := Path(storeDir)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config %s: %w", path, err)
	}
	return nil
}

// CarrierKind names which Transport Adapter a [remote] section
// selects, derived from the URL's scheme.
type CarrierKind int

const (
	// CarrierNone means no [remote] section: the store is local-only.
	CarrierNone CarrierKind = iota
	// CarrierStreaming is the gRPC streaming socket carrier (scheme-based URL).
	CarrierStreaming
	// CarrierVersioned is the versioned-sidechannel (git) carrier, selected
	// by a bare "." or a filesystem path instead of a scheme.
	CarrierVersioned
)

// Carrier classifies the configured remote, if any.
func (c *Config) Carrier() CarrierKind {
	if c == nil || c.Remote == nil || c.Remote.URL == "" {
		return CarrierNone
	}
	if isSchemeURL(c.Remote.URL) {
		return CarrierStreaming
	}
	return CarrierVersioned
}

// isSchemeURL reports whether url looks like "<scheme>://..." as opposed to
// a bare "." or a filesystem path.
func isSchemeURL(url string) bool {
	if url == "." {
		return false
	}
	for i := 0; i < len(url); i++ {
		switch url[i] {
		case ':':
			return i+2 < len(url) && url[i+1] == '/' && url[i+2] == '/'
		case '/', '.':
			return false
		}
	}
	return false
}
