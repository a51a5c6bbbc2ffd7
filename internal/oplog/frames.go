package oplog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/wk-dev/wk/internal/types"
)

// EncodeFrames serializes ops using the same `<u32 length><payload>`
// framing as the on-disk Log, for carriers (the versioned-sidechannel git
// carrier) that move a whole oplog as one blob rather than through a file
// handle.
func EncodeFrames(ops []types.Operation) ([]byte, error) {
	var buf bytes.Buffer
	for _, op := range ops {
		payload, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("marshal operation %s: %w", op.OpID, err)
		}
		if len(payload) > maxRecordLen {
			return nil, fmt.Errorf("operation %s exceeds max record size", op.OpID)
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		buf.Write(lenBuf[:])
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

// DecodeFrames is EncodeFrames's inverse.
func DecodeFrames(data []byte) ([]types.Operation, error) {
	r := bufio.NewReader(bytes.NewReader(data))
	var ops []types.Operation
	for {
		op, err := readOne(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}
