package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// DepKind is the CLI-facing dependency verb: blocked-by and
// tracked-by are sugar that swap from/to before storage.
type DepKind string

const (
	DepBlocks     DepKind = "blocks"
	DepBlockedBy  DepKind = "blocked-by"
	DepTracks     DepKind = "tracks"
	DepTrackedBy  DepKind = "tracked-by"
)

func normalizeDep(from, to string, kind DepKind) (types.Dependency, error) {
	switch kind {
	case DepBlocks:
		return types.Dependency{FromID: from, ToID: to, Relation: types.RelationBlocks}, nil
	case DepBlockedBy:
		return types.Dependency{FromID: to, ToID: from, Relation: types.RelationBlocks}, nil
	case DepTracks:
		return types.Dependency{FromID: from, ToID: to, Relation: types.RelationTracks}, nil
	case DepTrackedBy:
		return types.Dependency{FromID: to, ToID: from, Relation: types.RelationTracks}, nil
	default:
		return types.Dependency{}, werr.New(werr.InvalidInput, fmt.Sprintf("unknown dependency kind %q", kind))
	}
}

// AddDep inserts a dependency edge, rejecting self-edges, duplicates, and
// (for `blocks`) any insertion that would create a cycle.
// Cycle detection only applies to this locally-initiated path, never to
// operations folded in from a remote peer.
func (c *Controller) AddDep(ctx context.Context, from, to string, kind DepKind) error {
	dep, err := normalizeDep(from, to, kind)
	if err != nil {
		return err
	}
	if dep.FromID == dep.ToID {
		return werr.New(werr.ConstraintViolated, "dependency cannot reference itself")
	}

	var op types.Operation
	err = c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		if _, err := tx.GetIssue(ctx, dep.FromID); err != nil {
			return err
		}
		if _, err := tx.GetIssue(ctx, dep.ToID); err != nil {
			return err
		}

		if dep.Relation == types.RelationBlocks {
			existing, err := tx.AllDependencies(ctx)
			if err != nil {
				return err
			}
			if sqlite.WouldCycle(existing, dep.FromID, dep.ToID) {
				return werr.New(werr.ConstraintViolated, fmt.Sprintf("adding %s -> %s would create a cycle", dep.FromID, dep.ToID))
			}
		}

		now := time.Now()
		hlc := c.clock.Now()
		dep.CreatedAt = now
		dep.HLC = hlc
		dep.SiteID = c.store.SiteID
		if err := tx.AddDependency(ctx, dep); err != nil {
			return err
		}

		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpDepAdd, dep.FromID, oplog.DepPayload{
			FromID: dep.FromID, ToID: dep.ToID, Relation: dep.Relation,
		})
		return tx.RecordEvent(ctx, types.Event{
			IssueID: dep.FromID, Action: "dep:add", NewValue: fmt.Sprintf("%s %s %s", dep.FromID, dep.Relation, dep.ToID), CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}
	return c.emit(op)
}

// RemoveDep deletes a dependency edge and tombstones it for 2P-set merge.
func (c *Controller) RemoveDep(ctx context.Context, from, to string, kind DepKind) error {
	dep, err := normalizeDep(from, to, kind)
	if err != nil {
		return err
	}

	var op types.Operation
	err = c.store.WithTx(ctx, func(ctx context.Context, tx *sqlite.Tx) error {
		hlc := c.clock.Now()
		if err := tx.RemoveDependency(ctx, dep, hlc); err != nil {
			return err
		}
		op = oplog.NewOperation(c.store.SiteID, hlc, types.OpDepRemove, dep.FromID, oplog.DepPayload{
			FromID: dep.FromID, ToID: dep.ToID, Relation: dep.Relation,
		})
		return tx.RecordEvent(ctx, types.Event{
			IssueID: dep.FromID, Action: "dep:remove", OldValue: fmt.Sprintf("%s %s %s", dep.FromID, dep.Relation, dep.ToID), CreatedAt: time.Now(),
		})
	})
	if err != nil {
		return err
	}
	return c.emit(op)
}
