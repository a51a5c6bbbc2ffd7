// Package query implements the filter expression grammar used by `list`,
// `search`, and `ready`: field/op/value comparisons against
// issue timestamps, status-bare shorthands, the blocked/ready set over the
// `blocks` dependency relation, stable priority+recency sort, pagination,
// and case-insensitive substring search.
package query

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wk-dev/wk/internal/types"
)

// DefaultLimit is the default row cap for list/search.
const DefaultLimit = 100

// ReadyLimit is ready's hard cap, regardless of --limit.
const ReadyLimit = 5

// Matches reports whether issue satisfies the expression, relative to now.
func (e *Expr) Matches(issue *types.Issue, now time.Time) bool {
	if e.Bare {
		return bareStatusMatches(e.Field, issue.Status)
	}

	var subject time.Time
	var ok bool
	switch e.Field {
	case FieldAge:
		subject, ok = issue.CreatedAt, true
	case FieldActivity:
		subject, ok = issue.UpdatedAt, true
	case FieldCompleted:
		ok = issue.Status == types.StatusDone
		if ok && issue.ClosedAt != nil {
			subject = *issue.ClosedAt
		} else {
			ok = false
		}
	case FieldSkipped:
		ok = issue.Status == types.StatusClosed
		if ok && issue.ClosedAt != nil {
			subject = *issue.ClosedAt
		} else {
			ok = false
		}
	case FieldClosed:
		ok = issue.Status == types.StatusDone || issue.Status == types.StatusClosed
		if ok && issue.ClosedAt != nil {
			subject = *issue.ClosedAt
		} else {
			ok = false
		}
	}
	if !ok {
		return false
	}

	threshold := e.Threshold(now)
	switch e.Op {
	case OpLT:
		return subject.Before(threshold)
	case OpLTE:
		return !subject.After(threshold)
	case OpGT:
		return subject.After(threshold)
	case OpGTE:
		return !subject.Before(threshold)
	case OpEQ:
		return subject.Equal(threshold)
	case OpNE:
		return !subject.Equal(threshold)
	default:
		return false
	}
}

func bareStatusMatches(f Field, status types.Status) bool {
	switch f {
	case FieldCompleted:
		return status == types.StatusDone
	case FieldSkipped:
		return status == types.StatusClosed
	case FieldClosed:
		return status == types.StatusDone || status == types.StatusClosed
	default:
		return false
	}
}

// Apply narrows issues to those matching every expression in exprs (AND).
func Apply(issues []*types.Issue, exprs []*Expr, now time.Time) []*types.Issue {
	if len(exprs) == 0 {
		return issues
	}
	out := make([]*types.Issue, 0, len(issues))
	for _, issue := range issues {
		match := true
		for _, e := range exprs {
			if !e.Matches(issue, now) {
				match = false
				break
			}
		}
		if match {
			out = append(out, issue)
		}
	}
	return out
}

// Priority derives an issue's sort priority from its labels: "priority:<n>"
// is preferred, then "p:<n>", then named forms
// highest/high/medium/low/lowest mapping to 0..4; issues with no priority
// label sort as 2.
func Priority(labels []string) int {
	for _, l := range labels {
		if n, ok := parsePriorityLabel(l, "priority:"); ok {
			return n
		}
	}
	for _, l := range labels {
		if n, ok := parsePriorityLabel(l, "p:"); ok {
			return n
		}
	}
	for _, l := range labels {
		switch strings.ToLower(l) {
		case "highest":
			return 0
		case "high":
			return 1
		case "medium":
			return 2
		case "low":
			return 3
		case "lowest":
			return 4
		}
	}
	return 2
}

func parsePriorityLabel(label, prefix string) (int, bool) {
	if !strings.HasPrefix(strings.ToLower(label), prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(label[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Sort orders issues by the default stable sort: priority
// ascending, then created_at descending.
func Sort(issues []*types.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		pi, pj := Priority(issues[i].Labels), Priority(issues[j].Labels)
		if pi != pj {
			return pi < pj
		}
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
}

// Paginate applies an offset and limit. limit == 0 with unlimited == false
// applies defaultLimit; unlimited == true (CLI `--limit 0`) returns every
// remaining row.
func Paginate(issues []*types.Issue, offset, limit int, unlimited bool, defaultLimit int) []*types.Issue {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(issues) {
		return nil
	}
	issues = issues[offset:]

	if unlimited {
		return issues
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit >= len(issues) {
		return issues
	}
	return issues[:limit]
}

// BlockedSet returns the set of issue ids that are *blocked*: they have at
// least one direct predecessor under `blocks` whose status is not done or
// closed.
func BlockedSet(issues map[string]*types.Issue, deps []types.Dependency) map[string]bool {
	blocked := make(map[string]bool)
	for _, d := range deps {
		if d.Relation != types.RelationBlocks {
			continue
		}
		blocker, ok := issues[d.FromID]
		if !ok {
			continue
		}
		if !blocker.Status.IsTerminal() {
			blocked[d.ToID] = true
		}
	}
	return blocked
}

// ReadySet returns the set of issue ids with no open ancestor under
// `blocks`, transitively: the fixed point of
// repeatedly removing issues blocked by a still-open predecessor.
func ReadySet(issues map[string]*types.Issue, deps []types.Dependency) map[string]bool {
	blockedBy := make(map[string][]string) // to -> []from, blocks relation only
	for _, d := range deps {
		if d.Relation == types.RelationBlocks {
			blockedBy[d.ToID] = append(blockedBy[d.ToID], d.FromID)
		}
	}

	ready := make(map[string]bool, len(issues))
	for id, issue := range issues {
		if !issue.Status.IsTerminal() {
			ready[id] = true
		}
	}

	// Iterate to a fixed point: an issue is not ready if any predecessor
	// is itself still open (and thus not terminal, whether or not it is
	// itself ready).
	changed := true
	for changed {
		changed = false
		for id := range ready {
			for _, pred := range blockedBy[id] {
				predIssue, ok := issues[pred]
				if !ok {
					continue
				}
				if !predIssue.Status.IsTerminal() {
					delete(ready, id)
					changed = true
					break
				}
			}
		}
	}
	return ready
}

// Search performs a case-insensitive substring match over title,
// description, note content, labels, link URL, and link external id. The
// query is a plain substring: % and _ match themselves, never as
// wildcards.
func Search(issues []*types.Issue, q string) []*types.Issue {
	needle := strings.ToLower(q)
	if needle == "" {
		return issues
	}
	out := make([]*types.Issue, 0, len(issues))
	for _, issue := range issues {
		if issueMatchesSearch(issue, needle) {
			out = append(out, issue)
		}
	}
	return out
}

func issueMatchesSearch(issue *types.Issue, needle string) bool {
	if strings.Contains(strings.ToLower(issue.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(issue.Description), needle) {
		return true
	}
	for _, n := range issue.Notes {
		if strings.Contains(strings.ToLower(n.Content), needle) {
			return true
		}
	}
	for _, l := range issue.Labels {
		if strings.Contains(strings.ToLower(l), needle) {
			return true
		}
	}
	for _, link := range issue.Links {
		if strings.Contains(strings.ToLower(link.URL), needle) ||
			strings.Contains(strings.ToLower(link.ExternalID), needle) {
			return true
		}
	}
	return false
}
