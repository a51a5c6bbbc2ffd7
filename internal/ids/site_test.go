package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSiteIDIsRandomAndNonZero(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 50; i++ {
		id := NewSiteID()
		assert.NotZero(t, id)
		assert.False(t, seen[id], "site id collision across calls")
		seen[id] = true
	}
}
