package werr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindErrorAndExitCode(t *testing.T) {
	assert.Equal(t, "not found", NotFound.Error())
	assert.Equal(t, 1, NotFound.ExitCode())
	assert.Equal(t, 2, InvalidInput.ExitCode())
	assert.Equal(t, 5, IntegrityFailure.ExitCode())
	assert.Equal(t, 3, PartialFailure.ExitCode())
}

func TestNewProducesKindTaggedError(t *testing.T) {
	err := New(NotFound, "issue xyz not found")
	assert.EqualError(t, err, "issue xyz not found")
	assert.True(t, errors.Is(err, NotFound))
	assert.False(t, errors.Is(err, InvalidInput))
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	sentinel := errors.New("db closed")
	err := Wrap(Busy, sentinel)
	assert.True(t, errors.Is(err, Busy))
	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, "db closed", err.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(Busy, nil))
}

func TestKindErrorWorksThroughFmtWrapping(t *testing.T) {
	base := New(ConstraintViolated, "cycle detected")
	wrapped := fmt.Errorf("create dependency: %w", base)
	assert.True(t, errors.Is(wrapped, ConstraintViolated))
	assert.Equal(t, 1, ExitCode(wrapped))
}

func TestExitCodeDispatchesPerKind(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{InvalidInput, 2},
		{NotFound, 1},
		{InvalidTransition, 1},
		{ConstraintViolated, 1},
		{LimitExceeded, 1},
		{Busy, 1},
		{IntegrityFailure, 5},
		{TransportError, 1},
		{VersionMismatch, 1},
		{PartialFailure, 3},
	}
	for _, c := range cases {
		err := New(c.kind, "boom")
		assert.Equal(t, c.want, ExitCode(err), c.kind.Error())
	}
}

func TestExitCodeNilIsZero(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
}

func TestExitCodeDefaultsToOneForUnkindedError(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("plain error")))
}
