package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/validation"
)

// AddLabel is an idempotent add to the issue's label set.
func (c *Controller) AddLabel(ctx context.Context, issueID, label string) error {
	if err := validation.Label(label); err != nil {
		return err
	}
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		if _, err := tx.GetIssue(ctx, issueID); err != nil {
			return err
		}
		if err := tx.AddLabel(ctx, issueID, label); err != nil {
			return err
		}
		hlc := c.clock.Now()
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpLabelAdd, issueID, oplog.LabelPayload{Label: label})
		return tx.RecordEvent(ctx, types.Event{IssueID: issueID, Action: "label:add", NewValue: label, CreatedAt: time.Now()})
	})
	if err != nil {
		return err
	}
	return c.emit(op)
}

// RemoveLabel removes a label and tombstones it.
func (c *Controller) RemoveLabel(ctx context.Context, issueID, label string) error {
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		hlc := c.clock.Now()
		if err := tx.RemoveLabel(ctx, issueID, label, hlc); err != nil {
			return err
		}
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpLabelRemove, issueID, oplog.LabelPayload{Label: label})
		return tx.RecordEvent(ctx, types.Event{IssueID: issueID, Action: "label:remove", OldValue: label, CreatedAt: time.Now()})
	})
	if err != nil {
		return err
	}
	return c.emit(op)
}

// AddNote appends an immutable note, stamped with the issue's status at
// write time.
func (c *Controller) AddNote(ctx context.Context, issueID, content string) (types.Note, error) {
	if err := validation.Note(content); err != nil {
		return types.Note{}, err
	}
	var note types.Note
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		issue, err := tx.GetIssue(ctx, issueID)
		if err != nil {
			return err
		}
		now := time.Now()
		note = types.Note{IssueID: issueID, SiteID: c.store.SiteID, StatusAtWrite: issue.Status, Content: content, CreatedAt: now}
		note, err = tx.AddNote(ctx, note)
		if err != nil {
			return err
		}
		hlc := c.clock.Now()
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpNoteAdd, issueID, oplog.NotePayload{
			NoteID: note.ID, StatusAtWrite: note.StatusAtWrite, Content: content, CreatedAt: now,
		})
		return tx.RecordEvent(ctx, types.Event{IssueID: issueID, Action: "note:add", NewValue: fmt.Sprintf("#%d", note.ID), CreatedAt: now})
	})
	if err != nil {
		return types.Note{}, err
	}
	if err := c.emit(op); err != nil {
		return types.Note{}, err
	}
	return note, nil
}

// AddLink attaches an external reference.
func (c *Controller) AddLink(ctx context.Context, issueID string, link types.ExternalLink) (types.ExternalLink, error) {
	link.IssueID = issueID
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		if _, err := tx.GetIssue(ctx, issueID); err != nil {
			return err
		}
		now := time.Now()
		link.CreatedAt = now
		var err error
		link, err = tx.AddLink(ctx, link)
		if err != nil {
			return err
		}
		hlc := c.clock.Now()
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpLinkAdd, issueID, oplog.LinkPayload{
			Type: link.Type, URL: link.URL, ExternalID: link.ExternalID, Relation: link.Relation,
		})
		return tx.RecordEvent(ctx, types.Event{IssueID: issueID, Action: "link:add", NewValue: link.URL, CreatedAt: now})
	})
	if err != nil {
		return types.ExternalLink{}, err
	}
	if err := c.emit(op); err != nil {
		return types.ExternalLink{}, err
	}
	return link, nil
}

// RemoveLink removes a link and tombstones it by external id.
func (c *Controller) RemoveLink(ctx context.Context, issueID, externalID string) error {
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		hlc := c.clock.Now()
		if err := tx.RemoveLink(ctx, issueID, externalID, hlc); err != nil {
			return err
		}
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpLinkRemove, issueID, oplog.LinkPayload{ExternalID: externalID})
		return tx.RecordEvent(ctx, types.Event{IssueID: issueID, Action: "link:remove", OldValue: externalID, CreatedAt: time.Now()})
	})
	if err != nil {
		return err
	}
	return c.emit(op)
}
