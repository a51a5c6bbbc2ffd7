package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// AddLink attaches an external reference and returns it with
// its assigned row id.
func (s *Store) AddLink(ctx context.Context, link types.ExternalLink) (types.ExternalLink, error) {
	err := s.withTx(ctx, func(ctx context.Context, t *tx) error {
		res, err := t.ExecContext(ctx, `
			INSERT INTO links (issue_id, type, url, external_id, relation, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			link.IssueID, link.Type, link.URL, link.ExternalID, link.Relation, link.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert link: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("link insert id: %w", err)
		}
		link.ID = int(id)
		return nil
	})
	return link, err
}

// HasLink reports whether an identical link row already exists, used by
// remote merge to keep a redelivered LinkAdd from inserting a duplicate.
func (s *Store) HasLink(ctx context.Context, link types.ExternalLink) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM links WHERE issue_id=? AND type=? AND url=? AND external_id=? AND relation=?`,
		link.IssueID, link.Type, link.URL, link.ExternalID, link.Relation).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check link exists: %w", err)
	}
	return n > 0, nil
}

// RemoveLink deletes a link row and records a removal tombstone keyed by
// (issue_id, external_id) for 2P-set merge.
func (s *Store) RemoveLink(ctx context.Context, issueID, externalID string, hlc types.HLC) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		res, err := t.ExecContext(ctx, `DELETE FROM links WHERE issue_id=? AND external_id=?`, issueID, externalID)
		if err != nil {
			return fmt.Errorf("remove link: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return werr.New(werr.NotFound, "link does not exist")
		}
		_, err = t.ExecContext(ctx, `
			INSERT INTO link_tombstones (issue_id, external_id, hlc) VALUES (?, ?, ?)
			ON CONFLICT (issue_id, external_id) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > link_tombstones.hlc`,
			issueID, externalID, uint64(hlc))
		if err != nil {
			return fmt.Errorf("tombstone link: %w", err)
		}
		return nil
	})
}

// TombstoneLink upserts a removal tombstone without requiring the link to
// currently be present, used when folding a remote LinkRemove against a
// store that never saw the matching LinkAdd.
func (s *Store) TombstoneLink(ctx context.Context, issueID, externalID string, hlc types.HLC) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		_, err := t.ExecContext(ctx, `
			INSERT INTO link_tombstones (issue_id, external_id, hlc) VALUES (?, ?, ?)
			ON CONFLICT (issue_id, external_id) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > link_tombstones.hlc`,
			issueID, externalID, uint64(hlc))
		if err != nil {
			return fmt.Errorf("tombstone link: %w", err)
		}
		_, err = t.ExecContext(ctx, `DELETE FROM links WHERE issue_id=? AND external_id=?`, issueID, externalID)
		if err != nil {
			return fmt.Errorf("remove link: %w", err)
		}
		return nil
	})
}

// LinkTombstoneHLC returns the HLC of a link's removal tombstone, if any.
func (s *Store) LinkTombstoneHLC(ctx context.Context, issueID, externalID string) (types.HLC, bool, error) {
	var hlc uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT hlc FROM link_tombstones WHERE issue_id=? AND external_id=?`, issueID, externalID).Scan(&hlc)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read link tombstone: %w", err)
	}
	return types.HLC(hlc), true, nil
}

func (s *Store) listLinks(ctx context.Context, issueID string) ([]types.ExternalLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, type, url, external_id, relation, created_at
		FROM links WHERE issue_id = ? ORDER BY id`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []types.ExternalLink
	for rows.Next() {
		var l types.ExternalLink
		if err := rows.Scan(&l.ID, &l.IssueID, &l.Type, &l.URL, &l.ExternalID, &l.Relation, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
