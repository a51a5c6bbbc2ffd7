package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
)

func sampleOps() []types.Operation {
	return []types.Operation{
		NewOperation(1, types.HLC(10), types.OpIssueCreate, "aaa11111", IssueCreatePayload{Title: "first"}),
		NewOperation(2, types.HLC(20), types.OpLabelAdd, "aaa11111", LabelPayload{Label: "bug"}),
	}
}

func TestEncodeDecodeFramesRoundTrip(t *testing.T) {
	ops := sampleOps()
	data, err := EncodeFrames(ops)
	require.NoError(t, err)

	decoded, err := DecodeFrames(data)
	require.NoError(t, err)
	require.Len(t, decoded, len(ops))
	for i := range ops {
		assert.Equal(t, ops[i].OpID, decoded[i].OpID)
		assert.Equal(t, ops[i].Payload, decoded[i].Payload)
	}
}

func TestDecodeFramesEmptyInput(t *testing.T) {
	decoded, err := DecodeFrames(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeFramesTruncatedLengthPrefix(t *testing.T) {
	_, err := DecodeFrames([]byte{0, 0, 0})
	assert.Error(t, err)
}

func TestDecodeFramesTruncatedPayload(t *testing.T) {
	data, err := EncodeFrames(sampleOps())
	require.NoError(t, err)
	_, err = DecodeFrames(data[:len(data)-5])
	assert.Error(t, err)
}
