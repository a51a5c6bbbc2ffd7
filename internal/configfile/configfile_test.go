package configfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Prefix: "prj", Remote: &RemoteConfig{URL: "grpc://broker.example.com:9000", Branch: "main"}}
	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "prj", loaded.Prefix)
	require.NotNil(t, loaded.Remote)
	assert.Equal(t, "grpc://broker.example.com:9000", loaded.Remote.URL)
	assert.Equal(t, "main", loaded.Remote.Branch)
}

func TestSaveLoadRoundTripNoRemote(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Prefix: "abc"}
	require.NoError(t, cfg.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.Prefix)
	assert.Nil(t, loaded.Remote)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestPathJoinsFileName(t *testing.T) {
	assert.Equal(t, "/tmp/store/config.toml", Path("/tmp/store"))
}

func TestCarrierNoneWhenNoRemote(t *testing.T) {
	cfg := &Config{Prefix: "prj"}
	assert.Equal(t, CarrierNone, cfg.Carrier())
}

func TestCarrierNoneOnNilConfig(t *testing.T) {
	var cfg *Config
	assert.Equal(t, CarrierNone, cfg.Carrier())
}

func TestCarrierStreamingForSchemeURL(t *testing.T) {
	cfg := &Config{Remote: &RemoteConfig{URL: "grpc://broker.example.com:9000"}}
	assert.Equal(t, CarrierStreaming, cfg.Carrier())
}

func TestCarrierVersionedForBareDot(t *testing.T) {
	cfg := &Config{Remote: &RemoteConfig{URL: "."}}
	assert.Equal(t, CarrierVersioned, cfg.Carrier())
}

func TestCarrierVersionedForFilesystemPath(t *testing.T) {
	cfg := &Config{Remote: &RemoteConfig{URL: "/srv/shared/repo.git"}}
	assert.Equal(t, CarrierVersioned, cfg.Carrier())
}

func TestIsSchemeURL(t *testing.T) {
	assert.True(t, isSchemeURL("grpc://example.com"))
	assert.True(t, isSchemeURL("https://example.com"))
	assert.False(t, isSchemeURL("."))
	assert.False(t, isSchemeURL("/abs/path"))
	assert.False(t, isSchemeURL("./relative"))
	assert.False(t, isSchemeURL("relative/path"))
}
