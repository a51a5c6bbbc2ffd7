package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wk-dev/wk/internal/types"
)

func TestNormalizeTitleTrimsAndCollapsesWhitespace(t *testing.T) {
	got := normalizeTitle("  fix   the    login   bug  ")
	assert.Equal(t, "fix the login bug", got)
}

func TestNormalizeTitlePreservesQuotedSegment(t *testing.T) {
	got := normalizeTitle(`rename the   "User   Profile"   component`)
	assert.Equal(t, `rename the "User   Profile" component`, got)
}

func TestNormalizeTitlePreservesSingleQuotedSegment(t *testing.T) {
	got := normalizeTitle(`support  'raw   spacing'  here`)
	assert.Equal(t, `support 'raw   spacing' here`, got)
}

func TestNormalizeTitleNoQuotesNoChange(t *testing.T) {
	assert.Equal(t, "already normal", normalizeTitle("already normal"))
}

func TestFieldValueAndSetFieldValue(t *testing.T) {
	issue := &types.Issue{Title: "old title", IssueType: types.TypeTask, Assignee: "alice", Description: "desc"}

	assert.Equal(t, "old title", fieldValue(issue, "title"))
	assert.Equal(t, string(types.TypeTask), fieldValue(issue, "type"))
	assert.Equal(t, "alice", fieldValue(issue, "assignee"))
	assert.Equal(t, "desc", fieldValue(issue, "description"))
	assert.Equal(t, "", fieldValue(issue, "bogus"))

	setFieldValue(issue, "title", "new title")
	setFieldValue(issue, "assignee", "bob")
	assert.Equal(t, "new title", issue.Title)
	assert.Equal(t, "bob", issue.Assignee)
}
