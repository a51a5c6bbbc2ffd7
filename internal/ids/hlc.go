// Package ids implements the Identifier & Clock Service: issue
// id minting, the hybrid logical clock, and the per-store site identifier.
package ids

import (
	"sync"
	"time"

	"github.com/wk-dev/wk/internal/types"
)

const (
	physicalBits = 48
	logicalBits  = 16
	logicalMask  = 1<<logicalBits - 1
)

// Clock is a monotonic hybrid logical clock: a 48-bit physical millisecond
// component and a 16-bit logical counter packed into a single uint64 so
// that ordering by integer value matches causal ordering.
type Clock struct {
	mu       sync.Mutex
	lastPhys uint64
	lastLog  uint64
}

// NewClock returns a fresh clock with no prior ticks.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns a fresh HLC value for a locally originated operation. It
// satisfies: (i) monotonically increasing under repeated calls; (ii) if the
// physical clock has moved backward since the last call, the last returned
// physical component is preserved and only the logical counter advances.
func (c *Clock) Now() types.HLC {
	c.mu.Lock()
	defer c.mu.Unlock()

	phys := uint64(time.Now().UnixMilli())
	if phys > c.lastPhys {
		c.lastPhys = phys
		c.lastLog = 0
	} else {
		c.lastLog++
	}
	return pack(c.lastPhys, c.lastLog)
}

// Receive bumps the clock on receipt of a remote HLC H: local first moves
// up to the wall clock if that is ahead, then becomes max(local, H) + 1,
// expressed as a logical-counter bump when the physical components tie.
func (c *Clock) Receive(remote types.HLC) types.HLC {
	c.mu.Lock()
	defer c.mu.Unlock()

	localPhys, localLog := c.lastPhys, c.lastLog
	remotePhys, remoteLog := unpack(remote)
	wallPhys := uint64(time.Now().UnixMilli())
	if wallPhys > localPhys {
		localPhys, localLog = wallPhys, 0
	}

	switch {
	case remotePhys > localPhys:
		c.lastPhys, c.lastLog = remotePhys, remoteLog+1
	case remotePhys < localPhys:
		c.lastPhys, c.lastLog = localPhys, localLog+1
	default:
		if remoteLog >= localLog {
			c.lastLog = remoteLog + 1
		} else {
			c.lastLog = localLog + 1
		}
		c.lastPhys = localPhys
	}
	return pack(c.lastPhys, c.lastLog)
}

func pack(phys, log uint64) types.HLC {
	return types.HLC((phys << logicalBits) | (log & logicalMask))
}

func unpack(h types.HLC) (phys, log uint64) {
	v := uint64(h)
	return v >> logicalBits, v & logicalMask
}

// Physical returns the millisecond physical component of an HLC.
func Physical(h types.HLC) time.Time {
	phys, _ := unpack(h)
	return time.UnixMilli(int64(phys))
}
