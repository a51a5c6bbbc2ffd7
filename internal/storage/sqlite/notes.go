package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wk-dev/wk/internal/types"
)

// AddNote appends an immutable note, assigning the next note_id for the
// issue so note ids stay stable and densely ordered by creation.
func (s *Store) AddNote(ctx context.Context, note types.Note) (types.Note, error) {
	err := s.withTx(ctx, func(ctx context.Context, t *tx) error {
		var maxID sql.NullInt64
		if err := t.QueryRowContext(ctx, `SELECT MAX(note_id) FROM notes WHERE issue_id = ?`, note.IssueID).Scan(&maxID); err != nil {
			return fmt.Errorf("compute next note id: %w", err)
		}
		note.ID = int(maxID.Int64) + 1

		_, err := t.ExecContext(ctx, `
			INSERT INTO notes (issue_id, note_id, site_id, status_at_write, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			note.IssueID, note.ID, note.SiteID, string(note.StatusAtWrite), note.Content, note.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		return nil
	})
	return note, err
}

// InsertRemoteNote inserts a note with an explicit (site_id, note_id) pair
// received from a peer, a no-op if already present (at-least-once delivery
// dedup). Notes are grow-only: never reordered.
func (s *Store) InsertRemoteNote(ctx context.Context, note types.Note) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		_, err := t.ExecContext(ctx, `
			INSERT INTO notes (issue_id, note_id, site_id, status_at_write, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (issue_id, note_id, site_id) DO NOTHING`,
			note.IssueID, note.ID, note.SiteID, string(note.StatusAtWrite), note.Content, note.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert remote note: %w", err)
		}
		return nil
	})
}

func (s *Store) listNotes(ctx context.Context, issueID string) ([]types.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT issue_id, note_id, site_id, status_at_write, content, created_at
		FROM notes WHERE issue_id = ? ORDER BY created_at, site_id`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []types.Note
	for rows.Next() {
		var n types.Note
		var status string
		if err := rows.Scan(&n.IssueID, &n.ID, &n.SiteID, &status, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.StatusAtWrite = types.Status(status)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
