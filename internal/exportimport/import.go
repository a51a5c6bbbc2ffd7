package exportimport

import (
	"context"
	"fmt"

	"github.com/wk-dev/wk/internal/ids"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
)

// Result reports one record's outcome, so bulk imports can surface
// per-id detail on partial failure.
type Result struct {
	ID      string
	Created bool
	Skipped bool
	Err     error
}

// Import loads each record into store in two passes — every issue (with
// its labels, notes, and events) first, then every dependency edge —
// since a record's dependency may target an id that only appears later in
// the stream. A record whose id already exists is skipped (idempotent
// round-trip: re-importing the same export is a no-op), never
// overwritten — import is a bulk load path, not a merge path; reconciling
// conflicting concurrent edits is the operation log's job
// (internal/oplog), not import's.
func Import(ctx context.Context, store *sqlite.Store, clock *ids.Clock, records []types.ExportRecord) []Result {
	results := make([]Result, 0, len(records))
	created := make(map[string]bool, len(records))
	for _, rec := range records {
		res := importIssue(ctx, store, clock, rec)
		results = append(results, res)
		if res.Created {
			created[rec.ID] = true
		}
	}

	for i, rec := range records {
		if !created[rec.ID] {
			continue
		}
		if err := importDeps(ctx, store, rec); err != nil {
			results[i].Err = err
		}
	}
	return results
}

func importIssue(ctx context.Context, store *sqlite.Store, clock *ids.Clock, rec types.ExportRecord) Result {
	exists, err := store.IssueExists(ctx, rec.ID)
	if err != nil {
		return Result{ID: rec.ID, Err: fmt.Errorf("check existing: %w", err)}
	}
	if exists {
		return Result{ID: rec.ID, Skipped: true}
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		hlc := clock.Now()
		issue := &types.Issue{
			ID: rec.ID, IssueType: rec.IssueType, Title: rec.Title, Description: rec.Description,
			Status: rec.Status, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt,
			FieldHLC: map[string]types.HLC{
				"title": hlc, "type": hlc, "description": hlc, "assignee": hlc, "status": hlc,
			},
			FieldSite: map[string]uint64{
				"title": store.SiteID, "type": store.SiteID, "description": store.SiteID,
				"assignee": store.SiteID, "status": store.SiteID,
			},
		}
		if issue.Status.IsTerminal() {
			closedAt := rec.UpdatedAt
			issue.ClosedAt = &closedAt
		}
		if err := tx.CreateIssue(ctx, issue); err != nil {
			return err
		}

		for _, label := range rec.Labels {
			if err := tx.AddLabel(ctx, rec.ID, label); err != nil {
				return fmt.Errorf("import label %q: %w", label, err)
			}
		}
		for _, note := range rec.Notes {
			note.IssueID = rec.ID
			if _, err := tx.AddNote(ctx, note); err != nil {
				return fmt.Errorf("import note: %w", err)
			}
		}
		for _, ev := range rec.Events {
			ev.IssueID = rec.ID
			if err := tx.RecordEvent(ctx, ev); err != nil {
				return fmt.Errorf("import event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{ID: rec.ID, Err: err}
	}
	return Result{ID: rec.ID, Created: true}
}

func importDeps(ctx context.Context, store *sqlite.Store, rec types.ExportRecord) error {
	return store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		for _, dep := range rec.Deps {
			if dep.FromID != rec.ID {
				continue // this record only owns edges it originates
			}
			if err := tx.AddDependency(ctx, dep); err != nil {
				return fmt.Errorf("import dependency %s->%s: %w", dep.FromID, dep.ToID, err)
			}
		}
		return nil
	})
}
