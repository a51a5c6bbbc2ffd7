package daemon

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wk-dev/wk/internal/oplog"
)

// pollFallback is used in place of fsnotify events when the watcher could
// not be created.
const pollFallback = 60 * time.Second

// sendLoop ships every locally appended operation past what it has already
// sent to the active Carrier, waking on fsnotify events (or pollFallback
// ticks if watcher is nil) rather than busy-polling the log file.
func (d *Daemon) sendLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	var ticker *time.Ticker
	var wake <-chan time.Time
	var events <-chan fsnotify.Event
	if watcher == nil {
		ticker = time.NewTicker(pollFallback)
		defer ticker.Stop()
		wake = ticker.C
	} else {
		events = watcher.Events
	}

	sent := 0
	b := d.reconnectBackoff()

	flush := func() {
		ops, err := d.log.ReadAll()
		if err != nil {
			d.zlog.Error().Err(err).Msg("read oplog for send")
			return
		}
		if sent > len(ops) {
			sent = 0 // log was compacted/truncated; resend from the start
		}
		pending := ops[sent:]
		d.status.setQueueDepth(len(pending))
		if len(pending) == 0 {
			return
		}

		carrier, err := d.carrier.get(ctx, b, func(err error) {
			d.status.setConnected(false)
			d.zlog.Warn().Err(err).Msg("reconnecting to sync carrier")
		})
		if err != nil {
			return // ctx canceled while reconnecting
		}
		d.status.setConnected(true)

		for _, op := range pending {
			if err := carrier.Send(ctx, op); err != nil {
				d.zlog.Error().Err(err).Str("op_id", op.OpID).Msg("send operation")
				d.carrier.invalidate(carrier)
				d.status.setConnected(false)
				d.status.recordSync(err)
				return
			}
			sent++
		}
		d.status.setQueueDepth(0)
		d.status.recordSync(nil)

		// Everything is flushed; compact if the log has grown past the
		// threshold. Compaction only reorders (count is unchanged), so the
		// sent cursor stays valid as a count of already-shipped operations.
		if size, err := d.log.Size(); err == nil && size > oplog.CompactionSizeThreshold {
			if err := d.log.Compact(); err != nil {
				d.zlog.Warn().Err(err).Msg("compact oplog")
			}
		}
	}

	flush()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-wake:
			flush()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			flush()
		}
	}
}
