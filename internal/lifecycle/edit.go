package lifecycle

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/validation"
	"github.com/wk-dev/wk/internal/werr"
)

var editableFields = map[string]bool{
	"title": true, "type": true, "assignee": true, "description": true,
}

// Edit applies `edit <id> <field> <value>`. Title values are
// normalized (trimmed, whitespace-collapsed outside quoted segments) and
// rejected outright if they overflow the length limit, rather than
// absorbing the overflow into description the way `new` does — splitting
// an edit would silently change a field the caller didn't ask to touch.
func (c *Controller) Edit(ctx context.Context, id, field, value string) (*types.Issue, error) {
	if !editableFields[field] {
		return nil, werr.New(werr.InvalidInput, fmt.Sprintf("field %q is not editable", field))
	}

	switch field {
	case "title":
		value = normalizeTitle(value)
		if err := validation.Title(value); err != nil {
			return nil, err
		}
	case "description":
		if err := validation.Description(value); err != nil {
			return nil, err
		}
	case "type":
		if !types.IssueType(value).IsValid() {
			return nil, werr.New(werr.InvalidInput, fmt.Sprintf("invalid issue type %q", value))
		}
	}

	var issue *types.Issue
	var op types.Operation
	err := c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		var err error
		issue, err = tx.GetIssue(ctx, id)
		if err != nil {
			return err
		}
		old := fieldValue(issue, field)
		if old == value {
			op = types.Operation{} // no-op edit still reported as success, no event needed
			return nil
		}

		hlc := c.clock.Now()
		setFieldValue(issue, field, value)
		issue.UpdatedAt = time.Now()
		issue.FieldHLC[field] = hlc
		issue.FieldSite[field] = c.store.SiteID
		if err := tx.UpdateIssue(ctx, issue); err != nil {
			return err
		}

		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpIssueSetField, id, oplog.IssueSetFieldPayload{
			Field: field, Value: value,
		})
		return tx.RecordEvent(ctx, types.Event{
			IssueID: id, Action: "edit:" + field, OldValue: old, NewValue: value, CreatedAt: issue.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	if op.OpID != "" {
		if err := c.emit(op); err != nil {
			return nil, err
		}
	}
	return issue, nil
}

func fieldValue(issue *types.Issue, field string) string {
	switch field {
	case "title":
		return issue.Title
	case "type":
		return string(issue.IssueType)
	case "assignee":
		return issue.Assignee
	case "description":
		return issue.Description
	default:
		return ""
	}
}

func setFieldValue(issue *types.Issue, field, value string) {
	switch field {
	case "title":
		issue.Title = value
	case "type":
		issue.IssueType = types.IssueType(value)
	case "assignee":
		issue.Assignee = value
	case "description":
		issue.Description = value
	}
}

var quotedSegment = regexp.MustCompile(`"[^"]*"|'[^']*'`)
var runsOfSpace = regexp.MustCompile(`\s+`)

// normalizeTitle trims the whole string and collapses internal whitespace
// runs to a single space, except inside a quoted segment, which is
// preserved verbatim.
func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)

	var b strings.Builder
	last := 0
	for _, loc := range quotedSegment.FindAllStringIndex(title, -1) {
		b.WriteString(runsOfSpace.ReplaceAllString(title[last:loc[0]], " "))
		b.WriteString(title[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(runsOfSpace.ReplaceAllString(title[last:], " "))
	return strings.TrimSpace(b.String())
}
