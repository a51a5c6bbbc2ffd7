package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

func TestCheckTransitionStart(t *testing.T) {
	dest, err := checkTransition(Start, types.StatusTodo, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInProgress, dest)

	_, err = checkTransition(Start, types.StatusDone, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidTransition))
}

func TestCheckTransitionDoneFromInProgress(t *testing.T) {
	dest, err := checkTransition(Done, types.StatusInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, dest)
}

func TestCheckTransitionDoneFromTodoRequiresReason(t *testing.T) {
	_, err := checkTransition(Done, types.StatusTodo, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidTransition))

	dest, err := checkTransition(Done, types.StatusTodo, "skipping triage")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, dest)
}

func TestCheckTransitionDoneFromTerminalRejected(t *testing.T) {
	_, err := checkTransition(Done, types.StatusClosed, "reason")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidTransition))
}

func TestCheckTransitionCloseRequiresReason(t *testing.T) {
	_, err := checkTransition(Close, types.StatusTodo, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidInput))

	dest, err := checkTransition(Close, types.StatusInProgress, "wontfix")
	require.NoError(t, err)
	assert.Equal(t, types.StatusClosed, dest)
}

func TestCheckTransitionReopenRequiresTerminalAndReason(t *testing.T) {
	_, err := checkTransition(Reopen, types.StatusTodo, "reason")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidTransition))

	_, err = checkTransition(Reopen, types.StatusDone, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidTransition))

	dest, err := checkTransition(Reopen, types.StatusClosed, "new information")
	require.NoError(t, err)
	assert.Equal(t, types.StatusTodo, dest)
}

func TestCheckTransitionUnknown(t *testing.T) {
	_, err := checkTransition(Transition("bogus"), types.StatusTodo, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidInput))
}

func TestBulkErrAllSucceed(t *testing.T) {
	results := []BulkResult{{ID: "a"}, {ID: "b"}}
	assert.NoError(t, BulkErr(results))
}

func TestBulkErrAllFail(t *testing.T) {
	results := []BulkResult{{ID: "a", Err: errors.New("x")}, {ID: "b", Err: errors.New("y")}}
	err := BulkErr(results)
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.PartialFailure))
}

func TestBulkErrMixedSucceedAndFail(t *testing.T) {
	results := []BulkResult{{ID: "a"}, {ID: "b", Err: errors.New("y")}}
	err := BulkErr(results)
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.PartialFailure))
	assert.Contains(t, err.Error(), "1 of 2")
}
