package sqlite

import (
	"context"
	"fmt"

	"github.com/wk-dev/wk/internal/types"
)

// RecordEvent appends a standalone audit log entry. Callers composing an
// event with other writes in one transaction should go through
// Store.WithTx and Tx.RecordEvent instead, so the mutation and its event
// share one commit.
func (s *Store) RecordEvent(ctx context.Context, ev types.Event) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		return recordEventTx(ctx, t, ev)
	})
}

func recordEventTx(ctx context.Context, t *tx, ev types.Event) error {
	_, err := t.ExecContext(ctx, `
		INSERT INTO events (issue_id, action, old_value, new_value, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.IssueID, ev.Action, ev.OldValue, ev.NewValue, ev.Reason, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func (s *Store) listEvents(ctx context.Context, issueID string) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, action, old_value, new_value, reason, created_at
		FROM events WHERE issue_id = ? ORDER BY id`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var e types.Event
		if err := rows.Scan(&e.ID, &e.IssueID, &e.Action, &e.OldValue, &e.NewValue, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AllEvents returns every event in the store, newest last, for `log`
// without an issue id argument.
func (s *Store) AllEvents(ctx context.Context) ([]types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, action, old_value, new_value, reason, created_at
		FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var e types.Event
		if err := rows.Scan(&e.ID, &e.IssueID, &e.Action, &e.OldValue, &e.NewValue, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
