// Package oplog implements the append-only operation log and CRDT merge:
// operation framing, per-field last-write-wins and 2P-set merge rules,
// HLC-ordered replay into a Storage Engine, and compaction.
package oplog

import (
	"encoding/json"
	"time"

	"github.com/wk-dev/wk/internal/types"
)

// IssueCreatePayload is the IssueCreate operation's payload.
type IssueCreatePayload struct {
	IssueType   types.IssueType `json:"issue_type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Status      types.Status    `json:"status"`
	Assignee    string          `json:"assignee,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IssueSetFieldPayload is the IssueSetField operation's payload.
type IssueSetFieldPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// DepPayload is the DepAdd/DepRemove operation's payload.
type DepPayload struct {
	FromID   string        `json:"from_id"`
	ToID     string        `json:"to_id"`
	Relation types.Relation `json:"relation"`
}

// LabelPayload is the LabelAdd/LabelRemove operation's payload.
type LabelPayload struct {
	Label string `json:"label"`
}

// NotePayload is the NoteAdd operation's payload.
type NotePayload struct {
	NoteID        int          `json:"note_id"`
	StatusAtWrite types.Status `json:"status_at_write"`
	Content       string       `json:"content"`
	CreatedAt     time.Time    `json:"created_at"`
}

// LinkPayload is the LinkAdd/LinkRemove operation's payload.
type LinkPayload struct {
	Type       string `json:"type,omitempty"`
	URL        string `json:"url,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Relation   string `json:"relation,omitempty"`
}

// EventPayload is the EventAppend operation's payload.
type EventPayload struct {
	Action    string    `json:"action"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Payload types are all plain structs of strings, times, and small
		// enums; Marshal cannot fail on them.
		panic("oplog: marshal payload: " + err.Error())
	}
	return b
}
