package daemon

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/wk-dev/wk/internal/transport"
)

// carrierHandle lazily dials and caches the active Carrier, so the send
// and receive loops share one connection (a gRPC carrier is one bidi
// stream; losing it invalidates both directions at once) and redial with
// backoff rather than busy-looping while the remote is unreachable.
type carrierHandle struct {
	mu      sync.Mutex
	current transport.Carrier
	dial    func() (transport.Carrier, error)
}

func newCarrierHandle(dial func() (transport.Carrier, error)) *carrierHandle {
	return &carrierHandle{dial: dial}
}

// get returns the active carrier, dialing (with exponential backoff) if
// none is currently connected. It returns ctx.Err() if ctx is canceled
// while waiting to reconnect.
func (h *carrierHandle) get(ctx context.Context, b backoff.BackOff, onRetry func(err error)) (transport.Carrier, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		return h.current, nil
	}

	operation := func() error {
		c, err := h.dial()
		if err != nil {
			if onRetry != nil {
				onRetry(err)
			}
			return err
		}
		h.current = c
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return h.current, nil
}

// invalidate drops the cached carrier if it is still c, closing it so the
// next get redials.
func (h *carrierHandle) invalidate(c transport.Carrier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == c {
		h.current.Close()
		h.current = nil
	}
}

func (h *carrierHandle) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		h.current.Close()
		h.current = nil
	}
}
