package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/query"
	"github.com/wk-dev/wk/internal/types"
)

// List loads every issue, narrows it by exprs (AND across flags), sorts
// by priority then recency, and paginates. The filter and
// sort passes run in memory: the store is expected to hold at most a few
// tens of thousands of issues, well within a single full scan.
func (s *Store) List(ctx context.Context, exprs []*query.Expr, offset, limit int, unlimited bool) ([]*types.Issue, error) {
	issues, err := s.AllIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	now := time.Now()
	issues = query.Apply(issues, exprs, now)
	query.Sort(issues)
	return query.Paginate(issues, offset, limit, unlimited, query.DefaultLimit), nil
}

// Search performs a case-insensitive substring match over title,
// description, notes, labels, and links.
func (s *Store) Search(ctx context.Context, q string, offset, limit int, unlimited bool) ([]*types.Issue, error) {
	issues, err := s.AllIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	issues = query.Search(issues, q)
	query.Sort(issues)
	return query.Paginate(issues, offset, limit, unlimited, query.DefaultLimit), nil
}

// Ready returns every open issue with no still-open predecessor under the
// `blocks` relation, capped at query.ReadyLimit regardless of --limit.
// The second return value is the number of additional
// matches beyond the cap, so the caller can surface a truncation hint.
func (s *Store) Ready(ctx context.Context) ([]*types.Issue, int, error) {
	issues, err := s.AllIssues(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("ready issues: %w", err)
	}
	deps, err := s.AllDependencies(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("ready dependencies: %w", err)
	}

	byID := make(map[string]*types.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	readySet := query.ReadySet(byID, deps)

	ready := make([]*types.Issue, 0, len(readySet))
	for _, issue := range issues {
		if readySet[issue.ID] {
			ready = append(ready, issue)
		}
	}
	query.Sort(ready)
	var truncated int
	if len(ready) > query.ReadyLimit {
		truncated = len(ready) - query.ReadyLimit
		ready = ready[:query.ReadyLimit]
	}
	return ready, truncated, nil
}

// Blocked returns every issue with at least one direct open predecessor
// under `blocks`.
func (s *Store) Blocked(ctx context.Context) ([]*types.Issue, error) {
	issues, err := s.AllIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("blocked issues: %w", err)
	}
	deps, err := s.AllDependencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("blocked dependencies: %w", err)
	}

	byID := make(map[string]*types.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	blockedSet := query.BlockedSet(byID, deps)

	blocked := make([]*types.Issue, 0, len(blockedSet))
	for _, issue := range issues {
		if blockedSet[issue.ID] {
			blocked = append(blocked, issue)
		}
	}
	query.Sort(blocked)
	return blocked, nil
}
