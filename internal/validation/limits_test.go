package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/werr"
)

func TestTitleEmptyRejected(t *testing.T) {
	err := Title("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidInput))
}

func TestTitleAtMaxLenAccepted(t *testing.T) {
	assert.NoError(t, Title(strings.Repeat("a", MaxTitleLen)))
}

func TestTitleOverMaxLenRejected(t *testing.T) {
	err := Title(strings.Repeat("a", MaxTitleLen+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.LimitExceeded))
}

func TestDescriptionAtMaxLenAccepted(t *testing.T) {
	assert.NoError(t, Description(strings.Repeat("a", MaxDescriptionLen)))
}

func TestDescriptionOverMaxLenRejected(t *testing.T) {
	err := Description(strings.Repeat("a", MaxDescriptionLen+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.LimitExceeded))
}

func TestNoteAtMaxLenAccepted(t *testing.T) {
	assert.NoError(t, Note(strings.Repeat("a", MaxNoteLen)))
}

func TestNoteOverMaxLenRejected(t *testing.T) {
	err := Note(strings.Repeat("a", MaxNoteLen+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.LimitExceeded))
}

func TestLabelEmptyRejected(t *testing.T) {
	err := Label("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidInput))
}

func TestLabelOverMaxLenRejected(t *testing.T) {
	err := Label(strings.Repeat("a", MaxLabelLen+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.LimitExceeded))
}

func TestReasonOverMaxLenRejected(t *testing.T) {
	err := Reason(strings.Repeat("a", MaxReasonLen+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.LimitExceeded))
}

func TestSplitTitlePreservesShortTitle(t *testing.T) {
	short, desc := SplitTitle("a short title", "existing description")
	assert.Equal(t, "a short title", short)
	assert.Equal(t, "existing description", desc)
}

func TestSplitTitleAtExactlyMaxLenIsPreserved(t *testing.T) {
	title := strings.Repeat("a", MaxTitleLen)
	short, desc := SplitTitle(title, "")
	assert.Equal(t, title, short)
	assert.Equal(t, "", desc)
}

// Regression test: the ellipsis-fallback path must trigger only when no
// word-boundary space exists before the cut point, not whenever the space
// happens to land exactly at MaxTitleLen-1.
func TestSplitTitleBreaksAtWordBoundaryNotEllipsis(t *testing.T) {
	// A single word of length MaxTitleLen-1 ("w"*119), a space, then more
	// words: the word boundary sits at MaxTitleLen-1, the same index the
	// old buggy check compared against, so this exercises the regression.
	overflowWord := strings.Repeat("w", MaxTitleLen-1)
	title := overflowWord + " rest of the title overflowing"
	short, desc := SplitTitle(title, "")

	assert.Equal(t, overflowWord, short)
	assert.NotContains(t, short, "…")
	assert.Equal(t, "rest of the title overflowing", desc)
}

func TestSplitTitleFallsBackToEllipsisWithNoSpace(t *testing.T) {
	title := strings.Repeat("a", MaxTitleLen+10)
	short, desc := SplitTitle(title, "")

	assert.Equal(t, strings.Repeat("a", MaxTitleLen-1)+"…", short)
	assert.Equal(t, strings.Repeat("a", 11), desc)
}

func TestSplitTitleAppendsToExistingDescription(t *testing.T) {
	title := strings.Repeat("a", MaxTitleLen-1) + " overflow words here"
	short, desc := SplitTitle(title, "pre-existing")

	assert.Equal(t, strings.Repeat("a", MaxTitleLen-1), short)
	assert.Equal(t, "overflow words here\n\npre-existing", desc)
}
