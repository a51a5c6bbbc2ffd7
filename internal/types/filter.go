package types

import "time"

// IssueFilter narrows a list/search/ready query. Fields are combined with
// AND; a nil/zero field is not applied.
type IssueFilter struct {
	Status        *Status
	ExcludeStatus []Status
	IssueType     *IssueType
	Assignee      *string
	NoAssignee    bool
	Labels        []string
	LabelsAny     []string
	NoLabels      bool
	TitleContains string
	IDPrefix      string
	IDs           []string

	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	UpdatedAfter   *time.Time
	UpdatedBefore  *time.Time
	ClosedAfter    *time.Time
	ClosedBefore   *time.Time

	// Limit caps the number of rows returned. 0 means the caller's
	// default (100 for list/search, 5 for ready) applies; a caller that
	// explicitly wants unlimited rows sets Unlimited.
	Limit     int
	Unlimited bool
	Offset    int
}

// SortField names the sort key applied after filtering.
type SortField int

const (
	// SortDefault orders by derived priority ascending, then created_at
	// descending, as a stable two-key sort.
	SortDefault SortField = iota
)
