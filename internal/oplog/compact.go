package oplog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
)

// CompactionSizeThreshold is the live oplog file size past which the
// daemon's idle tick compacts the log. Not user-configurable: raising it
// trades disk for fewer rewrites, and the daemon is the only caller that
// needs to tune that trade-off.
const CompactionSizeThreshold = 10 << 20 // 10 MiB

// Replay loads every record in l, sorted into HLC order (break ties on
// site id, matching the merge tie-break rule), and folds them into store
// in that order so two stores that have seen the same operations reach
// bitwise-equal materialized state.
func Replay(ctx context.Context, l *Log, store *sqlite.Store) error {
	ops, err := l.ReadAll()
	if err != nil {
		return err
	}
	SortHLC(ops)
	for _, op := range ops {
		if err := Apply(ctx, store, op); err != nil {
			return err
		}
	}
	return nil
}

// SortHLC orders operations by HLC ascending, then by site id on exact
// ties, the replay order that makes folds deterministic.
func SortHLC(ops []types.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].HLC != ops[j].HLC {
			return ops[i].HLC < ops[j].HLC
		}
		return ops[i].SiteID < ops[j].SiteID
	})
}

// Size returns the log file's current byte size, for the daemon's
// compaction threshold check.
func (l *Log) Size() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info, err := os.Stat(l.path)
	if err != nil {
		return 0, fmt.Errorf("stat oplog: %w", err)
	}
	return info.Size(), nil
}

// Compact rewrites the log in HLC order, preserving the materialized fold.
// With no acknowledgement tracking wired in yet it keeps
// every record rather than trimming an acked prefix, which is always safe
// since replay is fold-idempotent; the CompactionSizeThreshold knob exists
// for when a real ack-offset protocol (internal/broker) trims instead of
// only resorting. The live file handle is swapped under the log's lock,
// so concurrent Append/ReadAll callers never see the half-written copy.
func (l *Log) Compact() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ops, err := l.readAllLocked()
	if err != nil {
		return err
	}
	SortHLC(ops)

	data, err := EncodeFrames(ops)
	if err != nil {
		return err
	}
	tmpPath := l.path + ".compact"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write compacted oplog: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("swap compacted oplog: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen compacted oplog: %w", err)
	}
	l.f.Close()
	l.f = f
	return nil
}
