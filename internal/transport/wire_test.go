package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
)

func TestEncodeDecodeOperationRoundTrip(t *testing.T) {
	op := types.Operation{
		OpID:     "abcdef0123456789",
		SiteID:   42,
		HLC:      types.HLC(123456789),
		Kind:     types.OpIssueSetField,
		TargetID: "prj-abcd1234",
		Payload:  []byte(`{"field":"status","value":"done"}`),
	}

	s, err := encodeOperation(op)
	require.NoError(t, err)

	decoded, err := decodeOperation(s)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestEncodeDecodeOperationEmptyPayload(t *testing.T) {
	op := types.Operation{OpID: "x", SiteID: 1, HLC: types.HLC(1), Kind: types.OpDepAdd, TargetID: "t"}
	s, err := encodeOperation(op)
	require.NoError(t, err)

	decoded, err := decodeOperation(s)
	require.NoError(t, err)
	assert.Equal(t, op.OpID, decoded.OpID)
	assert.Empty(t, decoded.Payload)
}
