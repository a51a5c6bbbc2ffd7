package transport

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wk-dev/wk/internal/types"
)

// wireOperation is types.Operation with its binary payload base64-encoded,
// since structpb.Struct (the gRPC wire message) has no native bytes
// field type. The site id and HLC travel as decimal strings: structpb
// numbers are float64, which cannot carry a full 64-bit value (a random
// site id, or an HLC's 48-bit milliseconds shifted past the 16-bit logical
// counter, both exceed float64's 53-bit integer range).
type wireOperation struct {
	OpID     string `json:"op_id"`
	SiteID   string `json:"site_id"`
	HLC      string `json:"hlc"`
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
	Payload  string `json:"payload_b64"`
}

// encodeOperation converts op into a structpb.Struct suitable for a gRPC
// message field, reusing the JSON struct tags above so the conversion is a
// single marshal/unmarshal round trip rather than a hand-built Value tree.
func encodeOperation(op types.Operation) (*structpb.Struct, error) {
	w := wireOperation{
		OpID:     op.OpID,
		SiteID:   strconv.FormatUint(op.SiteID, 10),
		HLC:      strconv.FormatUint(uint64(op.HLC), 10),
		Kind:     string(op.Kind),
		TargetID: op.TargetID,
		Payload:  base64.StdEncoding.EncodeToString(op.Payload),
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode operation: %w", err)
	}
	return structpb.NewStruct(m)
}

func decodeOperation(s *structpb.Struct) (types.Operation, error) {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return types.Operation{}, fmt.Errorf("decode operation: %w", err)
	}
	var w wireOperation
	if err := json.Unmarshal(raw, &w); err != nil {
		return types.Operation{}, fmt.Errorf("decode operation: %w", err)
	}
	payload, err := base64.StdEncoding.DecodeString(w.Payload)
	if err != nil {
		return types.Operation{}, fmt.Errorf("decode operation payload: %w", err)
	}
	siteID, err := strconv.ParseUint(w.SiteID, 10, 64)
	if err != nil {
		return types.Operation{}, fmt.Errorf("decode operation site id: %w", err)
	}
	hlc, err := strconv.ParseUint(w.HLC, 10, 64)
	if err != nil {
		return types.Operation{}, fmt.Errorf("decode operation hlc: %w", err)
	}
	return types.Operation{
		OpID: w.OpID, SiteID: siteID, HLC: types.HLC(hlc), Kind: types.OpKind(w.Kind),
		TargetID: w.TargetID, Payload: payload,
	}, nil
}
