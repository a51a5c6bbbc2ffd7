package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
)

func TestLogAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	ops := sampleOps()
	for _, op := range ops {
		require.NoError(t, l.Append(op))
	}

	read, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, read, len(ops))
	for i := range ops {
		assert.Equal(t, ops[i].OpID, read[i].OpID)
	}
}

func TestLogReadAllIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(sampleOps()[0]))

	first, err := l.ReadAll()
	require.NoError(t, err)
	second, err := l.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLogReopenPreservesAppendedRecords(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.Append(sampleOps()[0]))
	require.NoError(t, l.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	read, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, read, 1)
}

func TestLogPath(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()
	assert.Contains(t, l.Path(), FileName)
}

func TestSortHLCOrdersByHLCThenSiteID(t *testing.T) {
	ops := []types.Operation{
		{OpID: "c", SiteID: 5, HLC: types.HLC(30)},
		{OpID: "a", SiteID: 2, HLC: types.HLC(10)},
		{OpID: "b", SiteID: 1, HLC: types.HLC(10)},
	}
	SortHLC(ops)
	assert.Equal(t, []string{"b", "a", "c"}, []string{ops[0].OpID, ops[1].OpID, ops[2].OpID})
}

func TestSortHLCStableOnExactTies(t *testing.T) {
	ops := []types.Operation{
		{OpID: "first", SiteID: 1, HLC: types.HLC(10)},
		{OpID: "second", SiteID: 1, HLC: types.HLC(10)},
	}
	SortHLC(ops)
	assert.Equal(t, "first", ops[0].OpID)
	assert.Equal(t, "second", ops[1].OpID)
}

func TestLogSizeGrowsWithAppends(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	empty, err := l.Size()
	require.NoError(t, err)
	assert.Zero(t, empty)

	require.NoError(t, l.Append(sampleOps()[0]))
	grown, err := l.Size()
	require.NoError(t, err)
	assert.Greater(t, grown, empty)
}

func TestLogCompactSortsIntoHLCOrder(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	later := NewOperation(1, types.HLC(20), types.OpLabelAdd, "aaa11111", LabelPayload{Label: "bug"})
	earlier := NewOperation(2, types.HLC(10), types.OpLabelAdd, "aaa11111", LabelPayload{Label: "p0"})
	require.NoError(t, l.Append(later))
	require.NoError(t, l.Append(earlier))

	require.NoError(t, l.Compact())

	read, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, read, 2)
	assert.Equal(t, earlier.OpID, read[0].OpID)
	assert.Equal(t, later.OpID, read[1].OpID)
}

func TestLogAppendAfterCompactLandsInSwappedFile(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(sampleOps()[0]))
	require.NoError(t, l.Compact())

	extra := NewOperation(3, types.HLC(30), types.OpLabelAdd, "aaa11111", LabelPayload{Label: "later"})
	require.NoError(t, l.Append(extra))

	read, err := l.ReadAll()
	require.NoError(t, err)
	require.Len(t, read, 2)
	assert.Equal(t, extra.OpID, read[1].OpID)
}
