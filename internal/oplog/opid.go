package oplog

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/wk-dev/wk/internal/types"
)

// NewOperation builds a fully-formed Operation with a deterministic
// op_id hashed from its site id, HLC, kind, target id and payload, so a
// redelivered copy of an operation carries the same id and at-least-once
// delivery can be deduplicated by id alone.
func NewOperation(siteID uint64, hlc types.HLC, kind types.OpKind, targetID string, payload any) types.Operation {
	raw := marshal(payload)
	return types.Operation{
		OpID:     computeOpID(siteID, hlc, kind, targetID, raw),
		SiteID:   siteID,
		HLC:      hlc,
		Kind:     kind,
		TargetID: targetID,
		Payload:  raw,
	}
}

func computeOpID(siteID uint64, hlc types.HLC, kind types.OpKind, targetID string, payload []byte) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], siteID)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(hlc))
	h.Write(buf[:])
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(targetID))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
