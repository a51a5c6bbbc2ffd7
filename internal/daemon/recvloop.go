package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/werr"
)

// gitPollInterval paces Recv calls against a GitCarrier, which answers
// werr.NotFound instead of blocking when the journal has nothing new
// (unlike the gRPC carrier's blocking stream read).
const gitPollInterval = 5 * time.Second

// recvLoop pulls operations from the active Carrier, folds each into the
// local store (oplog.Apply), and appends it to the local log so it is
// both materialized and available to ferry onward to other carriers.
func (d *Daemon) recvLoop(ctx context.Context) error {
	seen, err := loadSeenOpIDs(d.log)
	if err != nil {
		return err
	}

	b := d.reconnectBackoff()
	for {
		if ctx.Err() != nil {
			return nil
		}

		carrier, err := d.carrier.get(ctx, b, func(err error) {
			d.status.setConnected(false)
			d.zlog.Warn().Err(err).Msg("reconnecting to sync carrier")
		})
		if err != nil {
			return nil // ctx canceled while reconnecting
		}
		d.status.setConnected(true)

		op, err := carrier.Recv(ctx)
		if err != nil {
			if errors.Is(err, werr.NotFound) {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(gitPollInterval):
				}
				continue
			}
			d.zlog.Error().Err(err).Msg("receive operation")
			d.carrier.invalidate(carrier)
			d.status.setConnected(false)
			d.status.recordSync(err)
			continue
		}

		if seen[op.OpID] {
			continue
		}
		d.clock.Receive(op.HLC)
		if err := oplog.Apply(ctx, d.store, op); err != nil {
			d.zlog.Error().Err(err).Str("op_id", op.OpID).Msg("apply remote operation")
			continue
		}
		if err := d.log.Append(op); err != nil {
			d.zlog.Error().Err(err).Str("op_id", op.OpID).Msg("persist remote operation")
			continue
		}
		seen[op.OpID] = true
	}
}

func loadSeenOpIDs(l *oplog.Log) (map[string]bool, error) {
	ops, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		seen[op.OpID] = true
	}
	return seen, nil
}
