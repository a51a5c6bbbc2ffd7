package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wk-dev/wk/internal/types"
)

func TestClockNowMonotonic(t *testing.T) {
	c := NewClock()
	var prev types.HLC
	for i := 0; i < 100; i++ {
		h := c.Now()
		assert.Greater(t, h, prev)
		prev = h
	}
}

func TestClockNowBackwardPhysicalClock(t *testing.T) {
	c := NewClock()
	first := c.Now()
	firstPhys, _ := unpack(first)

	// Simulate the wall clock moving backward: the next tick should keep
	// the last returned physical component and only bump the logical
	// counter.
	c.lastPhys = firstPhys + 1000
	c.lastLog = 0
	bumped := c.lastPhys

	second := c.Now()
	secondPhys, secondLog := unpack(second)
	assert.Equal(t, bumped, secondPhys)
	assert.Equal(t, uint64(1), secondLog)
}

func TestClockReceiveAheadOfLocal(t *testing.T) {
	c := NewClock()
	c.Now()

	remote := pack(c.lastPhys+10_000, 5)
	received := c.Receive(remote)
	phys, log := unpack(received)
	assert.Equal(t, c.lastPhys, phys)
	assert.Equal(t, uint64(6), log)
	assert.Greater(t, received, remote)
}

func TestClockReceiveBehindLocal(t *testing.T) {
	c := NewClock()
	c.Now()
	localPhys, localLog := c.lastPhys, c.lastLog

	remote := pack(localPhys-1000, 999)
	received := c.Receive(remote)
	phys, log := unpack(received)
	assert.Equal(t, localPhys, phys)
	assert.Equal(t, localLog+1, log)
}

func TestClockReceiveTiePhysical(t *testing.T) {
	c := NewClock()
	c.Now()
	localPhys, localLog := c.lastPhys, c.lastLog

	// Remote ties physical and has a higher logical counter.
	remote := pack(localPhys, localLog+5)
	received := c.Receive(remote)
	_, log := unpack(received)
	assert.Equal(t, localLog+6, log)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	h := pack(1234567890, 42)
	phys, log := unpack(h)
	assert.Equal(t, uint64(1234567890), phys)
	assert.Equal(t, uint64(42), log)
}

func TestHLCOrderingMatchesIntegerOrdering(t *testing.T) {
	a := pack(100, 5)
	b := pack(100, 6)
	c := pack(101, 0)
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}
