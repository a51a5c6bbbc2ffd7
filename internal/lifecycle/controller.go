// Package lifecycle implements the Lifecycle Controller: issue
// creation, status transitions, field edits, dependency/label/note/link
// mutation with cycle rejection, and the event emitted for every one of
// them. Every mutating method commits its storage write and event row
// atomically via sqlite.Store.WithTx, then appends exactly one Operation
// to the operation log after that commit.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/ids"
	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/validation"
	"github.com/wk-dev/wk/internal/werr"
)

// OpAppender receives every operation a mutation produces, in commit order.
// Satisfied by *oplog.Log; a no-op appender is useful in tests that only
// care about materialized state.
type OpAppender interface {
	Append(op types.Operation) error
}

// Controller is the single entry point for every issue mutation.
type Controller struct {
	store    *sqlite.Store
	clock    *ids.Clock
	appender OpAppender
}

// New builds a Controller over an already-open store.
func New(store *sqlite.Store, clock *ids.Clock, appender OpAppender) *Controller {
	return &Controller{store: store, clock: clock, appender: appender}
}

// emit appends op after the transaction that produced it has committed —
// the store write and the log append are deliberately two steps (the log
// is the durable source of truth for sync; a crash between them just means
// a locally-visible mutation that hasn't yet been queued for sync, which a
// future startup reconciliation pass can detect by diffing store vs. log).
func (c *Controller) emit(op types.Operation) error {
	if c.appender == nil {
		return nil
	}
	if err := c.appender.Append(op); err != nil {
		return fmt.Errorf("append operation %s: %w", op.OpID, err)
	}
	return nil
}

// NewIssue creates a fresh issue, minting its id under prefix
// and applying the title auto-split rule.
func (c *Controller) NewIssue(ctx context.Context, prefix string, issueType types.IssueType, title, description string) (*types.Issue, error) {
	if !issueType.IsValid() {
		return nil, werr.New(werr.InvalidInput, fmt.Sprintf("invalid issue type %q", issueType))
	}
	shortTitle, desc := validation.SplitTitle(title, description)
	if err := validation.Title(shortTitle); err != nil {
		return nil, err
	}
	if err := validation.Description(desc); err != nil {
		return nil, err
	}

	id, err := ids.MintIssueID(prefix, func(candidate string) (bool, error) {
		return c.store.IssueExists(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	hlc := c.clock.Now()
	issue := &types.Issue{
		ID: id, IssueType: issueType, Title: shortTitle, Description: desc,
		Status: types.StatusTodo, CreatedAt: now, UpdatedAt: now,
		FieldHLC: map[string]types.HLC{
			"title": hlc, "type": hlc, "description": hlc, "assignee": hlc, "status": hlc,
		},
		FieldSite: map[string]uint64{
			"title": c.store.SiteID, "type": c.store.SiteID, "description": c.store.SiteID,
			"assignee": c.store.SiteID, "status": c.store.SiteID,
		},
	}

	var op types.Operation
	err = c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		if err := tx.CreateIssue(ctx, issue); err != nil {
			return err
		}
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpIssueCreate, id, oplog.IssueCreatePayload{
			IssueType: issueType, Title: shortTitle, Description: desc,
			Status: types.StatusTodo, CreatedAt: now,
		})
		return tx.RecordEvent(ctx, types.Event{IssueID: id, Action: "create", NewValue: shortTitle, CreatedAt: now})
	})
	if err != nil {
		return nil, err
	}
	if err := c.emit(op); err != nil {
		return nil, err
	}
	return issue, nil
}
