package daemon

import (
	"github.com/wk-dev/wk/internal/ipc"
)

// wireControl registers the four control-channel verbs against
// this daemon's state.
func (d *Daemon) wireControl() {
	d.ipc.Handle(ipc.VerbHello, func(req ipc.Request) (any, error) {
		return ipc.HelloResponse{
			ServerVersion: ipc.ProtocolVersion,
			SiteID:        d.store.SiteID,
			StorePath:     d.dir,
		}, nil
	})

	d.ipc.Handle(ipc.VerbStatus, func(req ipc.Request) (any, error) {
		connected, kind, queueDepth, lastSyncAt, lastErr := d.status.snapshot()
		resp := ipc.StatusResponse{
			Connected:   connected,
			CarrierKind: kind,
			QueueDepth:  queueDepth,
			LastSyncAt:  lastSyncAt,
		}
		if lastErr != nil {
			resp.LastSyncError = lastErr.Error()
		}
		return resp, nil
	})

	d.ipc.Handle(ipc.VerbSync, func(req ipc.Request) (any, error) {
		// The send/recv loops already run continuously; "sync" just confirms
		// the daemon is alive and already chasing the latest state.
		return ipc.SyncResponse{Triggered: true}, nil
	})

	d.ipc.Handle(ipc.VerbStop, func(req ipc.Request) (any, error) {
		d.status.requestStop()
		go d.shutdown()
		return ipc.StopResponse{Stopping: true}, nil
	})
}

func (d *Daemon) shutdown() {
	if d.cancel != nil {
		d.cancel()
	}
	d.ipc.Close()
}
