package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// Tx is a single write transaction exposed to callers (the Lifecycle
// Controller) that need to mutate several tables atomically —
// e.g. "set status, stamp closed_at, record one event" — while still
// producing exactly one operation/event pair.
type Tx struct {
	t *tx
}

// WithTx runs fn inside one write transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, wtx *Tx) error) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		return fn(ctx, &Tx{t: t})
	})
}

func (wtx *Tx) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	return scanIssue(ctx, wtx.t.Conn, id)
}

func (wtx *Tx) CreateIssue(ctx context.Context, issue *types.Issue) error {
	return insertIssue(ctx, wtx.t.Conn, issue)
}

func (wtx *Tx) UpdateIssue(ctx context.Context, issue *types.Issue) error {
	return updateIssueRow(ctx, wtx.t.Conn, issue)
}

func (wtx *Tx) RecordEvent(ctx context.Context, ev types.Event) error {
	return recordEventTx(ctx, wtx.t, ev)
}

func (wtx *Tx) AddDependency(ctx context.Context, dep types.Dependency) error {
	if dep.FromID == dep.ToID {
		return werr.New(werr.ConstraintViolated, "dependency cannot reference itself")
	}
	_, err := wtx.t.ExecContext(ctx, `
		INSERT INTO dependencies (from_id, to_id, relation, created_at, hlc, site_id) VALUES (?, ?, ?, ?, ?, ?)`,
		dep.FromID, dep.ToID, string(dep.Relation), dep.CreatedAt, uint64(dep.HLC), dep.SiteID)
	if err != nil {
		if isUniqueViolation(err) {
			return werr.Wrap(werr.ConstraintViolated, fmt.Errorf("dependency already exists: %w", err))
		}
		return fmt.Errorf("insert dependency: %w", err)
	}
	return nil
}

func (wtx *Tx) RemoveDependency(ctx context.Context, dep types.Dependency, hlc types.HLC) error {
	res, err := wtx.t.ExecContext(ctx, `
		DELETE FROM dependencies WHERE from_id=? AND to_id=? AND relation=?`,
		dep.FromID, dep.ToID, string(dep.Relation))
	if err != nil {
		return fmt.Errorf("remove dependency: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return werr.New(werr.NotFound, "dependency does not exist")
	}
	_, err = wtx.t.ExecContext(ctx, `
		INSERT INTO dep_tombstones (from_id, to_id, relation, hlc) VALUES (?, ?, ?, ?)
		ON CONFLICT (from_id, to_id, relation) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > dep_tombstones.hlc`,
		dep.FromID, dep.ToID, string(dep.Relation), uint64(hlc))
	if err != nil {
		return fmt.Errorf("tombstone dependency: %w", err)
	}
	return nil
}

func (wtx *Tx) AllDependencies(ctx context.Context) ([]types.Dependency, error) {
	return queryDeps(ctx, wtx.t.Conn, `SELECT from_id, to_id, relation, created_at, hlc, site_id FROM dependencies`)
}

func (wtx *Tx) AddLabel(ctx context.Context, issueID, label string) error {
	_, err := wtx.t.ExecContext(ctx, `
		INSERT INTO labels (issue_id, label) VALUES (?, ?)
		ON CONFLICT (issue_id, label) DO NOTHING`, issueID, label)
	if err != nil {
		return fmt.Errorf("add label: %w", err)
	}
	return nil
}

func (wtx *Tx) RemoveLabel(ctx context.Context, issueID, label string, hlc types.HLC) error {
	if _, err := wtx.t.ExecContext(ctx, `DELETE FROM labels WHERE issue_id=? AND label=?`, issueID, label); err != nil {
		return fmt.Errorf("remove label: %w", err)
	}
	_, err := wtx.t.ExecContext(ctx, `
		INSERT INTO label_tombstones (issue_id, label, hlc) VALUES (?, ?, ?)
		ON CONFLICT (issue_id, label) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > label_tombstones.hlc`,
		issueID, label, uint64(hlc))
	if err != nil {
		return fmt.Errorf("tombstone label: %w", err)
	}
	return nil
}

func (wtx *Tx) AddNote(ctx context.Context, note types.Note) (types.Note, error) {
	var maxID int64
	row := wtx.t.QueryRowContext(ctx, `SELECT COALESCE(MAX(note_id), 0) FROM notes WHERE issue_id = ?`, note.IssueID)
	if err := row.Scan(&maxID); err != nil {
		return note, fmt.Errorf("compute next note id: %w", err)
	}
	note.ID = int(maxID) + 1
	_, err := wtx.t.ExecContext(ctx, `
		INSERT INTO notes (issue_id, note_id, site_id, status_at_write, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		note.IssueID, note.ID, note.SiteID, string(note.StatusAtWrite), note.Content, note.CreatedAt)
	if err != nil {
		return note, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

func (wtx *Tx) AddLink(ctx context.Context, link types.ExternalLink) (types.ExternalLink, error) {
	res, err := wtx.t.ExecContext(ctx, `
		INSERT INTO links (issue_id, type, url, external_id, relation, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		link.IssueID, link.Type, link.URL, link.ExternalID, link.Relation, link.CreatedAt)
	if err != nil {
		return link, fmt.Errorf("insert link: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return link, fmt.Errorf("link insert id: %w", err)
	}
	link.ID = int(id)
	return link, nil
}

func (wtx *Tx) RemoveLink(ctx context.Context, issueID, externalID string, hlc types.HLC) error {
	res, err := wtx.t.ExecContext(ctx, `DELETE FROM links WHERE issue_id=? AND external_id=?`, issueID, externalID)
	if err != nil {
		return fmt.Errorf("remove link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return werr.New(werr.NotFound, "link does not exist")
	}
	_, err = wtx.t.ExecContext(ctx, `
		INSERT INTO link_tombstones (issue_id, external_id, hlc) VALUES (?, ?, ?)
		ON CONFLICT (issue_id, external_id) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > link_tombstones.hlc`,
		issueID, externalID, uint64(hlc))
	if err != nil {
		return fmt.Errorf("tombstone link: %w", err)
	}
	return nil
}

func (wtx *Tx) MarshalFieldHLC(m map[string]types.HLC) (string, error) {
	b, err := json.Marshal(m)
	return string(b), err
}
