package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wk-dev/wk/internal/types"
)

func issueAt(id string, status types.Status, created time.Time, closed *time.Time) *types.Issue {
	return &types.Issue{ID: id, Status: status, CreatedAt: created, UpdatedAt: created, ClosedAt: closed}
}

func TestMatchesAge(t *testing.T) {
	// "age > 24h" resolves VALUE to the instant 24h ago and compares
	// created_at against it literally: it selects issues
	// created more recently than that instant, not issues older than it.
	now := time.Now()
	fresh := issueAt("a", types.StatusTodo, now.Add(-time.Hour), nil)
	e := &Expr{Field: FieldAge, Op: OpGT, Duration: 24 * time.Hour}
	assert.True(t, e.Matches(fresh, now))

	old := issueAt("b", types.StatusTodo, now.Add(-48*time.Hour), nil)
	assert.False(t, e.Matches(old, now))
}

func TestMatchesCompletedRequiresDoneStatus(t *testing.T) {
	now := time.Now()
	closedAt := now.Add(-time.Hour)
	done := issueAt("a", types.StatusDone, now.Add(-48*time.Hour), &closedAt)
	e := &Expr{Field: FieldCompleted, Op: OpLT, Duration: 0}
	assert.True(t, e.Matches(done, now))

	closedIssue := issueAt("b", types.StatusClosed, now.Add(-48*time.Hour), &closedAt)
	assert.False(t, e.Matches(closedIssue, now))
}

func TestMatchesSkippedRequiresClosedStatus(t *testing.T) {
	now := time.Now()
	closedAt := now.Add(-time.Hour)
	skipped := issueAt("a", types.StatusClosed, now.Add(-48*time.Hour), &closedAt)
	e := &Expr{Field: FieldSkipped, Op: OpLTE, Duration: -1 * time.Minute}
	assert.True(t, e.Matches(skipped, now))
}

func TestMatchesClosedEitherTerminalStatus(t *testing.T) {
	now := time.Now()
	closedAt := now.Add(-time.Minute)
	done := issueAt("a", types.StatusDone, now, &closedAt)
	closed := issueAt("b", types.StatusClosed, now, &closedAt)
	todo := issueAt("c", types.StatusTodo, now, nil)

	e := &Expr{Field: FieldClosed, Op: OpLTE, IsNow: true}
	assert.True(t, e.Matches(done, now))
	assert.True(t, e.Matches(closed, now))
	assert.False(t, e.Matches(todo, now))
}

func TestBareStatusMatches(t *testing.T) {
	assert.True(t, bareStatusMatches(FieldCompleted, types.StatusDone))
	assert.False(t, bareStatusMatches(FieldCompleted, types.StatusClosed))
	assert.True(t, bareStatusMatches(FieldSkipped, types.StatusClosed))
	assert.True(t, bareStatusMatches(FieldClosed, types.StatusDone))
	assert.True(t, bareStatusMatches(FieldClosed, types.StatusClosed))
	assert.False(t, bareStatusMatches(FieldClosed, types.StatusTodo))
}

func TestApplyANDsExpressions(t *testing.T) {
	now := time.Now()
	recent := issueAt("a", types.StatusTodo, now.Add(-time.Hour), nil)
	stale := issueAt("b", types.StatusInProgress, now.Add(-30*time.Hour), nil)
	issues := []*types.Issue{recent, stale}

	// created more recently than 24h ago...
	createdRecently := &Expr{Field: FieldAge, Op: OpGT, Duration: 24 * time.Hour}
	// ...and created in the past (always true for real issues).
	createdBeforeNow := &Expr{Field: FieldAge, Op: OpLT, Duration: 0}
	out := Apply(issues, []*Expr{createdRecently, createdBeforeNow}, now)
	assert.Equal(t, []*types.Issue{recent}, out)
}

func TestPriorityLabelPrecedence(t *testing.T) {
	assert.Equal(t, 3, Priority([]string{"priority:3", "p:1"}))
	assert.Equal(t, 1, Priority([]string{"p:1"}))
	assert.Equal(t, 0, Priority([]string{"highest"}))
	assert.Equal(t, 4, Priority([]string{"lowest"}))
	assert.Equal(t, 2, Priority(nil))
	assert.Equal(t, 2, Priority([]string{"unrelated"}))
}

func TestSortStablePriorityThenRecency(t *testing.T) {
	now := time.Now()
	low := &types.Issue{ID: "low", Labels: []string{"priority:4"}, CreatedAt: now}
	newHigh := &types.Issue{ID: "new-high", Labels: []string{"priority:0"}, CreatedAt: now}
	oldHigh := &types.Issue{ID: "old-high", Labels: []string{"priority:0"}, CreatedAt: now.Add(-time.Hour)}

	issues := []*types.Issue{low, oldHigh, newHigh}
	Sort(issues)
	assert.Equal(t, []string{"new-high", "old-high", "low"}, idsOf(issues))
}

func idsOf(issues []*types.Issue) []string {
	out := make([]string, len(issues))
	for i, iss := range issues {
		out[i] = iss.ID
	}
	return out
}

func TestPaginateDefaultLimit(t *testing.T) {
	issues := make([]*types.Issue, 10)
	for i := range issues {
		issues[i] = &types.Issue{ID: string(rune('a' + i))}
	}
	out := Paginate(issues, 0, 0, false, 5)
	assert.Len(t, out, 5)
}

func TestPaginateUnlimited(t *testing.T) {
	issues := make([]*types.Issue, 10)
	for i := range issues {
		issues[i] = &types.Issue{ID: string(rune('a' + i))}
	}
	out := Paginate(issues, 0, 0, true, 5)
	assert.Len(t, out, 10)
}

func TestPaginateOffsetPastEnd(t *testing.T) {
	issues := []*types.Issue{{ID: "a"}, {ID: "b"}}
	out := Paginate(issues, 10, 5, false, 100)
	assert.Nil(t, out)
}

func TestBlockedSetDirectOnly(t *testing.T) {
	issues := map[string]*types.Issue{
		"a": {ID: "a", Status: types.StatusTodo},
		"b": {ID: "b", Status: types.StatusTodo},
		"c": {ID: "c", Status: types.StatusDone},
	}
	deps := []types.Dependency{
		{FromID: "a", ToID: "b", Relation: types.RelationBlocks},
		{FromID: "c", ToID: "a", Relation: types.RelationBlocks},
	}
	blocked := BlockedSet(issues, deps)
	assert.True(t, blocked["b"])
	assert.False(t, blocked["a"]) // c is done, doesn't block a
}

func TestReadySetTransitive(t *testing.T) {
	issues := map[string]*types.Issue{
		"a": {ID: "a", Status: types.StatusTodo},
		"b": {ID: "b", Status: types.StatusTodo},
		"c": {ID: "c", Status: types.StatusTodo},
	}
	// a blocks b blocks c: only a is ready.
	deps := []types.Dependency{
		{FromID: "a", ToID: "b", Relation: types.RelationBlocks},
		{FromID: "b", ToID: "c", Relation: types.RelationBlocks},
	}
	ready := ReadySet(issues, deps)
	assert.True(t, ready["a"])
	assert.False(t, ready["b"])
	assert.False(t, ready["c"])
}

func TestReadySetExcludesTerminalIssues(t *testing.T) {
	issues := map[string]*types.Issue{
		"a": {ID: "a", Status: types.StatusDone},
	}
	ready := ReadySet(issues, nil)
	assert.False(t, ready["a"])
}

func TestSearchCaseInsensitiveSubstring(t *testing.T) {
	issues := []*types.Issue{
		{ID: "1", Title: "Add login"},
		{ID: "2", Title: "Fix Login flow"},
		{ID: "3", Title: "Docs"},
	}
	out := Search(issues, "login")
	assert.Len(t, out, 2)
	outUpper := Search(issues, "LOGIN")
	assert.Equal(t, out, outUpper)
}

func TestSearchMatchesNotesLabelsAndLinks(t *testing.T) {
	issues := []*types.Issue{
		{ID: "1", Notes: []types.Note{{Content: "discussed with infra team"}}},
		{ID: "2", Labels: []string{"infra"}},
		{ID: "3", Links: []types.ExternalLink{{URL: "https://infra.example.com"}}},
		{ID: "4", Title: "unrelated"},
	}
	out := Search(issues, "infra")
	assert.Len(t, out, 3)
}
