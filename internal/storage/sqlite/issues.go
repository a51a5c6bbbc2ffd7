package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// CreateIssue inserts a new issue row in its own transaction and writes no
// event row; callers that need the issue and its event in one commit use
// WithTx with Tx.CreateIssue and Tx.RecordEvent, keeping this package
// agnostic of the lifecycle/oplog layers above it.
func (s *Store) CreateIssue(ctx context.Context, issue *types.Issue) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		return insertIssue(ctx, t.Conn, issue)
	})
}

func insertIssue(ctx context.Context, conn *sql.Conn, issue *types.Issue) error {
	fieldHLC, err := json.Marshal(issue.FieldHLC)
	if err != nil {
		return fmt.Errorf("marshal field hlc: %w", err)
	}
	fieldSite, err := json.Marshal(issue.FieldSite)
	if err != nil {
		return fmt.Errorf("marshal field site: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO issues (id, issue_type, title, description, status, assignee, created_at, updated_at, closed_at, field_hlc, field_site)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, string(issue.IssueType), issue.Title, issue.Description, string(issue.Status),
		issue.Assignee, issue.CreatedAt, issue.UpdatedAt, nullableTime(issue.ClosedAt), string(fieldHLC), string(fieldSite))
	if err != nil {
		if isUniqueViolation(err) {
			return werr.Wrap(werr.ConstraintViolated, fmt.Errorf("issue %s already exists: %w", issue.ID, err))
		}
		return fmt.Errorf("insert issue %s: %w", issue.ID, err)
	}
	return nil
}

// IssueExists reports whether id is already present, used by id minting's
// collision check.
func (s *Store) IssueExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check issue exists: %w", err)
	}
	return n > 0, nil
}

// GetIssue loads a single issue with its labels, notes, deps, events, and
// links populated.
func (s *Store) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	issue, err := scanIssue(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanIssue(ctx context.Context, q querier, id string) (*types.Issue, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, issue_type, title, description, status, assignee, created_at, updated_at, closed_at, field_hlc, field_site
		FROM issues WHERE id = ?`, id)

	issue := &types.Issue{}
	var closedAt sql.NullTime
	var fieldHLC, fieldSite string
	var issueType, status string
	err := row.Scan(&issue.ID, &issueType, &issue.Title, &issue.Description, &status,
		&issue.Assignee, &issue.CreatedAt, &issue.UpdatedAt, &closedAt, &fieldHLC, &fieldSite)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, werr.New(werr.NotFound, fmt.Sprintf("no such issue %q", id))
	}
	if err != nil {
		return nil, fmt.Errorf("scan issue %s: %w", id, err)
	}
	issue.IssueType = types.IssueType(issueType)
	issue.Status = types.Status(status)
	if closedAt.Valid {
		issue.ClosedAt = &closedAt.Time
	}
	issue.FieldHLC = map[string]types.HLC{}
	if fieldHLC != "" {
		_ = json.Unmarshal([]byte(fieldHLC), &issue.FieldHLC)
	}
	issue.FieldSite = map[string]uint64{}
	if fieldSite != "" {
		_ = json.Unmarshal([]byte(fieldSite), &issue.FieldSite)
	}
	return issue, nil
}

// hydrate populates labels, notes, deps, events, and links on issue.
func (s *Store) hydrate(ctx context.Context, issue *types.Issue) error {
	var err error
	if issue.Labels, err = s.listLabels(ctx, issue.ID); err != nil {
		return err
	}
	if issue.Notes, err = s.listNotes(ctx, issue.ID); err != nil {
		return err
	}
	if issue.Deps, err = s.listDepsFrom(ctx, issue.ID); err != nil {
		return err
	}
	if issue.Events, err = s.listEvents(ctx, issue.ID); err != nil {
		return err
	}
	if issue.Links, err = s.listLinks(ctx, issue.ID); err != nil {
		return err
	}
	return nil
}

// AllIssueIDs returns every issue id, used by partial-id resolution and
// full-table scans (list without filters).
func (s *Store) AllIssueIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM issues`)
	if err != nil {
		return nil, fmt.Errorf("list issue ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan issue id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllIssues loads every issue, fully hydrated. Callers needing filtering,
// sorting, or pagination apply internal/query on top of this.
func (s *Store) AllIssues(ctx context.Context) ([]*types.Issue, error) {
	ids, err := s.AllIssueIDs(ctx)
	if err != nil {
		return nil, err
	}
	issues := make([]*types.Issue, 0, len(ids))
	for _, id := range ids {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// SetField applies a last-write-wins field update if hlc is newer than the
// field's currently recorded HLC, per the oplog merge rule.
// Returns true if the write was applied.
func (s *Store) SetField(ctx context.Context, id, field, value string, hlc types.HLC, siteID uint64) (bool, error) {
	applied := false
	err := s.withTx(ctx, func(ctx context.Context, t *tx) error {
		issue, err := scanIssue(ctx, t.Conn, id)
		if err != nil {
			return err
		}
		if existing, ok := issue.FieldHLC[field]; ok && !hlcWins(hlc, siteID, existing, issue.FieldSite[field]) {
			return nil
		}
		issue.FieldHLC[field] = hlc
		issue.FieldSite[field] = siteID
		if err := applyFieldValue(issue, field, value); err != nil {
			return err
		}
		issue.UpdatedAt = maxTime(issue.UpdatedAt, time.Now())
		applied = true
		return updateIssueRow(ctx, t.Conn, issue)
	})
	return applied, err
}

// hlcWins applies the merge tie-break: the larger HLC wins; on an exact
// tie, the larger site id wins.
func hlcWins(candidate types.HLC, candidateSite uint64, incumbent types.HLC, incumbentSite uint64) bool {
	if candidate != incumbent {
		return candidate > incumbent
	}
	return candidateSite > incumbentSite
}

func applyFieldValue(issue *types.Issue, field, value string) error {
	switch field {
	case "title":
		issue.Title = value
	case "type":
		issue.IssueType = types.IssueType(value)
	case "description":
		issue.Description = value
	case "assignee":
		issue.Assignee = value
	case "status":
		issue.Status = types.Status(value)
		if issue.Status.IsTerminal() {
			if issue.ClosedAt == nil {
				now := time.Now()
				issue.ClosedAt = &now
			}
		} else {
			issue.ClosedAt = nil
		}
	default:
		return werr.New(werr.InvalidInput, fmt.Sprintf("unknown field %q", field))
	}
	return nil
}

func updateIssueRow(ctx context.Context, conn *sql.Conn, issue *types.Issue) error {
	fieldHLC, err := json.Marshal(issue.FieldHLC)
	if err != nil {
		return fmt.Errorf("marshal field hlc: %w", err)
	}
	fieldSite, err := json.Marshal(issue.FieldSite)
	if err != nil {
		return fmt.Errorf("marshal field site: %w", err)
	}
	_, err = conn.ExecContext(ctx, `
		UPDATE issues SET issue_type=?, title=?, description=?, status=?, assignee=?, updated_at=?, closed_at=?, field_hlc=?, field_site=?
		WHERE id=?`,
		string(issue.IssueType), issue.Title, issue.Description, string(issue.Status), issue.Assignee,
		issue.UpdatedAt, nullableTime(issue.ClosedAt), string(fieldHLC), string(fieldSite), issue.ID)
	if err != nil {
		return fmt.Errorf("update issue %s: %w", issue.ID, err)
	}
	return nil
}

// UpdateIssueDirect overwrites mutable fields without the HLC race check,
// used by the Lifecycle Controller for locally-originated writes (which
// always win locally; the HLC is recorded for later remote merge).
func (s *Store) UpdateIssueDirect(ctx context.Context, issue *types.Issue) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		return updateIssueRow(ctx, t.Conn, issue)
	})
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	return err != nil && (contains(err.Error(), "UNIQUE constraint") || contains(err.Error(), "unique constraint"))
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
