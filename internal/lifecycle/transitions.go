package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/validation"
	"github.com/wk-dev/wk/internal/werr"
)

// Transition is one of the four lifecycle verbs.
type Transition string

const (
	Start  Transition = "start"
	Done   Transition = "done"
	Close  Transition = "close"
	Reopen Transition = "reopen"
)

// checkTransition enforces the transition table, returning the
// destination status or an InvalidTransition error.
func checkTransition(t Transition, from types.Status, reason string) (types.Status, error) {
	switch t {
	case Start:
		if from.IsTerminal() {
			return "", werr.New(werr.InvalidTransition, fmt.Sprintf("cannot start from %s", from))
		}
		return types.StatusInProgress, nil
	case Done:
		switch from {
		case types.StatusInProgress:
			return types.StatusDone, nil
		case types.StatusTodo:
			if reason == "" {
				return "", werr.New(werr.InvalidTransition, "done from todo requires --reason")
			}
			return types.StatusDone, nil
		default:
			return "", werr.New(werr.InvalidTransition, fmt.Sprintf("cannot mark done from %s", from))
		}
	case Close:
		if reason == "" {
			return "", werr.New(werr.InvalidInput, "close requires --reason")
		}
		return types.StatusClosed, nil
	case Reopen:
		if !from.IsTerminal() {
			return "", werr.New(werr.InvalidTransition, fmt.Sprintf("cannot reopen from %s", from))
		}
		if reason == "" {
			return "", werr.New(werr.InvalidTransition, "reopen from a terminal state requires --reason")
		}
		return types.StatusTodo, nil
	default:
		return "", werr.New(werr.InvalidInput, fmt.Sprintf("unknown transition %q", t))
	}
}

// Apply performs a single transition on one issue.
func (c *Controller) Apply(ctx context.Context, t Transition, id, reason string) (*types.Issue, error) {
	if err := validation.Reason(reason); err != nil {
		return nil, err
	}

	var issue *types.Issue
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		var err error
		issue, err = tx.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		dest, err := checkTransition(t, issue.Status, reason)
		if err != nil {
			return err
		}

		hlc := c.clock.Now()
		old := issue.Status
		issue.Status = dest
		issue.UpdatedAt = time.Now()
		if dest.IsTerminal() {
			now := issue.UpdatedAt
			issue.ClosedAt = &now
		} else {
			issue.ClosedAt = nil
		}
		issue.FieldHLC["status"] = hlc
		issue.FieldSite["status"] = c.store.SiteID
		if err := tx.UpdateIssue(ctx, issue); err != nil {
			return err
		}

		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpIssueSetField, id, oplog.IssueSetFieldPayload{
			Field: "status", Value: string(dest),
		})
		return tx.RecordEvent(ctx, types.Event{
			IssueID: id, Action: string(t), OldValue: string(old), NewValue: string(dest),
			Reason: reason, CreatedAt: issue.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	if err := c.emit(op); err != nil {
		return nil, err
	}
	return issue, nil
}

// BulkResult is one id's outcome from a bulk transition: valid targets
// proceed, invalid targets are reported.
type BulkResult struct {
	ID    string
	Issue *types.Issue
	Err   error
}

// ApplyBulk runs Apply independently over every id, continuing past
// per-id failures. The caller maps the result list to a process exit code
// via werr.PartialFailure when any result failed (see BulkErr).
func (c *Controller) ApplyBulk(ctx context.Context, t Transition, ids []string, reason string) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		issue, err := c.Apply(ctx, t, id, reason)
		results = append(results, BulkResult{ID: id, Issue: issue, Err: err})
	}
	return results
}

// BulkErr reports the aggregate error for a bulk result set: nil if every
// id succeeded, werr.PartialFailure otherwise — even when every id failed
// identically, since the CLI surfaces per-id detail separately.
func BulkErr(results []BulkResult) error {
	var failures int
	for _, r := range results {
		if r.Err != nil {
			failures++
		}
	}
	switch {
	case failures == 0:
		return nil
	case failures == len(results):
		return werr.New(werr.PartialFailure, fmt.Sprintf("all %d targets failed", failures))
	default:
		return werr.New(werr.PartialFailure, fmt.Sprintf("%d of %d targets failed", failures, len(results)))
	}
}
