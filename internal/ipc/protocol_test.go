package ipc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSocketPathShortDirUsesNaturalPath(t *testing.T) {
	dir := "/home/user/project"
	got := SocketPath(dir)
	assert.Equal(t, dir+"/daemon.sock", got)
}

func TestSocketPathLongDirFallsBackToTmp(t *testing.T) {
	dir := "/home/user/" + strings.Repeat("x", MaxUnixSocketPath)
	got := SocketPath(dir)
	assert.LessOrEqual(t, len(got), MaxUnixSocketPath+40)
	assert.Contains(t, got, "wk-")
	assert.Contains(t, got, "daemon.sock")
	assert.NotContains(t, got, dir)
}

func TestSocketPathFallbackIsDeterministic(t *testing.T) {
	dir := "/home/user/" + strings.Repeat("y", 200)
	assert.Equal(t, SocketPath(dir), SocketPath(dir))
}

func TestHashPathDeterministicAndDistinguishing(t *testing.T) {
	a := hashPath("/one/path")
	b := hashPath("/one/path")
	c := hashPath("/another/path")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
