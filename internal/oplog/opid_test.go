package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
)

func TestNewOperationIsDeterministic(t *testing.T) {
	payload := IssueSetFieldPayload{Field: "status", Value: "in_progress"}
	a := NewOperation(1, types.HLC(100), types.OpIssueSetField, "abc12345", payload)
	b := NewOperation(1, types.HLC(100), types.OpIssueSetField, "abc12345", payload)

	require.Equal(t, a.OpID, b.OpID)
	assert.Len(t, a.OpID, 16)
	assert.Equal(t, a.Payload, b.Payload)
}

func TestNewOperationIDChangesWithAnyField(t *testing.T) {
	base := NewOperation(1, types.HLC(100), types.OpIssueSetField, "abc12345", IssueSetFieldPayload{Field: "status", Value: "done"})

	diffSite := NewOperation(2, types.HLC(100), types.OpIssueSetField, "abc12345", IssueSetFieldPayload{Field: "status", Value: "done"})
	diffHLC := NewOperation(1, types.HLC(101), types.OpIssueSetField, "abc12345", IssueSetFieldPayload{Field: "status", Value: "done"})
	diffKind := NewOperation(1, types.HLC(100), types.OpLabelAdd, "abc12345", IssueSetFieldPayload{Field: "status", Value: "done"})
	diffTarget := NewOperation(1, types.HLC(100), types.OpIssueSetField, "zzz99999", IssueSetFieldPayload{Field: "status", Value: "done"})
	diffPayload := NewOperation(1, types.HLC(100), types.OpIssueSetField, "abc12345", IssueSetFieldPayload{Field: "status", Value: "closed"})

	ids := []string{base.OpID, diffSite.OpID, diffHLC.OpID, diffKind.OpID, diffTarget.OpID, diffPayload.OpID}
	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "unexpected op_id collision for %q", id)
		seen[id] = true
	}
}

func TestNewOperationSetsBasicFields(t *testing.T) {
	op := NewOperation(42, types.HLC(7), types.OpDepAdd, "xyz98765", DepPayload{FromID: "a", ToID: "b", Relation: types.RelationBlocks})
	assert.Equal(t, uint64(42), op.SiteID)
	assert.Equal(t, types.HLC(7), op.HLC)
	assert.Equal(t, types.OpDepAdd, op.Kind)
	assert.Equal(t, "xyz98765", op.TargetID)
	assert.Contains(t, string(op.Payload), `"from_id":"a"`)
}
