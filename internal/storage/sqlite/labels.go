package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wk-dev/wk/internal/types"
)

// AddLabel is an idempotent add to the per-issue label set.
func (s *Store) AddLabel(ctx context.Context, issueID, label string) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		_, err := t.ExecContext(ctx, `
			INSERT INTO labels (issue_id, label) VALUES (?, ?)
			ON CONFLICT (issue_id, label) DO NOTHING`, issueID, label)
		if err != nil {
			return fmt.Errorf("add label: %w", err)
		}
		return nil
	})
}

// RemoveLabel removes a label and records a removal tombstone for 2P-set
// merge.
func (s *Store) RemoveLabel(ctx context.Context, issueID, label string, hlc types.HLC) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		if _, err := t.ExecContext(ctx, `DELETE FROM labels WHERE issue_id=? AND label=?`, issueID, label); err != nil {
			return fmt.Errorf("remove label: %w", err)
		}
		_, err := t.ExecContext(ctx, `
			INSERT INTO label_tombstones (issue_id, label, hlc) VALUES (?, ?, ?)
			ON CONFLICT (issue_id, label) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > label_tombstones.hlc`,
			issueID, label, uint64(hlc))
		if err != nil {
			return fmt.Errorf("tombstone label: %w", err)
		}
		return nil
	})
}

// TombstoneLabel upserts a removal tombstone without requiring the label
// to currently be present, used when folding a remote LabelRemove against
// a store that never saw the matching LabelAdd.
func (s *Store) TombstoneLabel(ctx context.Context, issueID, label string, hlc types.HLC) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		_, err := t.ExecContext(ctx, `
			INSERT INTO label_tombstones (issue_id, label, hlc) VALUES (?, ?, ?)
			ON CONFLICT (issue_id, label) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > label_tombstones.hlc`,
			issueID, label, uint64(hlc))
		if err != nil {
			return fmt.Errorf("tombstone label: %w", err)
		}
		_, err = t.ExecContext(ctx, `DELETE FROM labels WHERE issue_id=? AND label=?`, issueID, label)
		if err != nil {
			return fmt.Errorf("remove label: %w", err)
		}
		return nil
	})
}

// LabelTombstoneHLC returns the HLC of a label's removal tombstone, if any.
func (s *Store) LabelTombstoneHLC(ctx context.Context, issueID, label string) (types.HLC, bool, error) {
	var hlc uint64
	err := s.db.QueryRowContext(ctx, `SELECT hlc FROM label_tombstones WHERE issue_id=? AND label=?`, issueID, label).Scan(&hlc)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read label tombstone: %w", err)
	}
	return types.HLC(hlc), true, nil
}

func (s *Store) listLabels(ctx context.Context, issueID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label FROM labels WHERE issue_id = ? ORDER BY label`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
