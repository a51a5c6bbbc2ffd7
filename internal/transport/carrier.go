// Package transport implements the pluggable sync Carrier: a
// bidirectional operation channel between two peers, backed either by a
// streaming gRPC connection to a broker/peer daemon or by a
// versioned-sidechannel git branch.
package transport

import (
	"context"

	"github.com/wk-dev/wk/internal/types"
)

// Carrier moves operations to and from a remote peer. Send and Recv may be
// called concurrently by different goroutines (typically one writer loop,
// one reader loop in the sync daemon); a single Carrier value is not
// required to support concurrent Send calls with each other, nor
// concurrent Recv calls with each other.
type Carrier interface {
	// Send transmits one operation. Ordering across calls is preserved by
	// the underlying transport.
	Send(ctx context.Context, op types.Operation) error

	// Recv returns the next operation. The gRPC carrier blocks until one
	// arrives, the carrier's context is canceled, or the connection is lost
	// (in which case it returns a werr.TransportError-kinded error); the
	// git carrier does not block and returns a werr.NotFound-kinded error
	// when its journal has nothing new.
	Recv(ctx context.Context) (types.Operation, error)

	// Close releases the underlying connection/resources.
	Close() error
}
