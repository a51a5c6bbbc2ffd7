package oplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wk-dev/wk/internal/ids"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// opTime derives a wall-clock timestamp from an operation's HLC for rows
// (dependencies, links) that record a created_at but have no dedicated
// payload timestamp of their own.
func opTime(op types.Operation) time.Time {
	return ids.Physical(op.HLC)
}

// Apply folds a single operation into store under the merge rules. It is
// safe to apply the same operation more than once (at-least-once
// delivery): creates are idempotent on id existence, field writes are
// no-ops when the incoming HLC does not win, set membership and note
// inserts are deduplicated at the storage layer.
func Apply(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	switch op.Kind {
	case types.OpIssueCreate:
		return applyIssueCreate(ctx, store, op)
	case types.OpIssueSetField:
		return applyIssueSetField(ctx, store, op)
	case types.OpDepAdd:
		return applyDepAdd(ctx, store, op)
	case types.OpDepRemove:
		return applyDepRemove(ctx, store, op)
	case types.OpLabelAdd:
		return applyLabelAdd(ctx, store, op)
	case types.OpLabelRemove:
		return applyLabelRemove(ctx, store, op)
	case types.OpNoteAdd:
		return applyNoteAdd(ctx, store, op)
	case types.OpLinkAdd:
		return applyLinkAdd(ctx, store, op)
	case types.OpLinkRemove:
		return applyLinkRemove(ctx, store, op)
	case types.OpEventAppend:
		return applyEventAppend(ctx, store, op)
	default:
		return fmt.Errorf("oplog: unknown operation kind %q", op.Kind)
	}
}

func applyIssueCreate(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	exists, err := store.IssueExists(ctx, op.TargetID)
	if err != nil {
		return err
	}
	if exists {
		// Id collisions resolve at mint time (the earlier HLC keeps the id,
		// the later site mints a fresh suffix and emits a compensating
		// rewrite); by the time a second IssueCreate for the same id reaches
		// replay, treating it as a no-op is always correct.
		return nil
	}
	var p IssueCreatePayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode IssueCreate payload: %w", err)
	}
	issue := &types.Issue{
		ID:          op.TargetID,
		IssueType:   p.IssueType,
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Assignee:    p.Assignee,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.CreatedAt,
		FieldHLC: map[string]types.HLC{
			"title": op.HLC, "type": op.HLC, "description": op.HLC,
			"assignee": op.HLC, "status": op.HLC,
		},
		FieldSite: map[string]uint64{
			"title": op.SiteID, "type": op.SiteID, "description": op.SiteID,
			"assignee": op.SiteID, "status": op.SiteID,
		},
	}
	if issue.Status.IsTerminal() {
		issue.ClosedAt = &p.CreatedAt
	}
	return store.CreateIssue(ctx, issue)
}

func applyIssueSetField(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p IssueSetFieldPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode IssueSetField payload: %w", err)
	}
	_, err := store.SetField(ctx, op.TargetID, p.Field, p.Value, op.HLC, op.SiteID)
	return err
}

func applyDepAdd(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p DepPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode DepAdd payload: %w", err)
	}
	dep := types.Dependency{FromID: p.FromID, ToID: p.ToID, Relation: p.Relation, HLC: op.HLC, SiteID: op.SiteID}

	tomb, ok, err := store.DependencyTombstoneHLC(ctx, dep)
	if err != nil {
		return err
	}
	if ok && tomb >= op.HLC {
		return nil // a later-or-equal remove already won
	}

	dep.CreatedAt = opTime(op)

	if dep.Relation == types.RelationBlocks {
		existing, err := store.AllDependencies(ctx)
		if err != nil {
			return err
		}
		if sqlite.WouldCycle(existing, dep.FromID, dep.ToID) {
			return resolveRemoteCycle(ctx, store, existing, dep)
		}
	}

	if err := store.AddDependency(ctx, dep); err != nil {
		if errors.Is(err, werr.ConstraintViolated) {
			return nil // already present or self-edge from a stale retry; idempotent
		}
		return err
	}
	return nil
}

// dominates reports whether a took precedence over b when two concurrent
// sites independently wrote conflicting edges: the larger HLC wins, the
// larger site id breaking an exact tie (the same tie-break the field
// merge uses, reused here for cycle exclusion).
func dominates(a, b types.Dependency) bool {
	if a.HLC != b.HLC {
		return a.HLC > b.HLC
	}
	return a.SiteID > b.SiteID
}

// cyclePath returns the existing `blocks` edges forming a path from `to`
// back to `from`, which together with a prospective from->to edge would
// close a cycle. Returns nil if no such path exists.
func cyclePath(deps []types.Dependency, from, to string) []types.Dependency {
	adj := make(map[string][]types.Dependency)
	for _, d := range deps {
		if d.Relation == types.RelationBlocks {
			adj[d.FromID] = append(adj[d.FromID], d)
		}
	}

	visited := make(map[string]bool)
	var path []types.Dependency
	var dfs func(node string) bool
	dfs = func(node string) bool {
		if node == from {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, edge := range adj[node] {
			path = append(path, edge)
			if dfs(edge.ToID) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if dfs(to) {
		return path
	}
	return nil
}

// resolveRemoteCycle handles a remote DepAdd that would close a cycle:
// the materialized graph excludes exactly the one edge in that cycle with
// the largest HLC (site id breaking ties), keeping every edge with a
// smaller HLC. This is evaluated fresh from the
// current graph on every apply, so the outcome is the same regardless of
// the order replicas receive the conflicting operations.
func resolveRemoteCycle(ctx context.Context, store *sqlite.Store, existing []types.Dependency, dep types.Dependency) error {
	path := cyclePath(existing, dep.FromID, dep.ToID)

	victim := dep
	victimIsIncoming := true
	for _, edge := range path {
		if dominates(edge, victim) {
			victim = edge
			victimIsIncoming = false
		}
	}

	if victimIsIncoming {
		// The incoming edge itself is the youngest link in the cycle:
		// leave the graph as-is, excluding it from materialization. It
		// stays in the log so re-application (or a future edge removal
		// elsewhere in the cycle) can still produce it.
		return nil
	}

	// An existing edge is the youngest link: exclude it instead, keeping
	// it tombstoned at the incoming op's HLC so a later stale re-add of
	// that same edge doesn't resurrect the cycle.
	if err := store.TombstoneDependency(ctx, types.Dependency{FromID: victim.FromID, ToID: victim.ToID, Relation: victim.Relation}, dep.HLC); err != nil {
		return err
	}
	if err := store.AddDependency(ctx, dep); err != nil {
		if errors.Is(err, werr.ConstraintViolated) {
			return nil
		}
		return err
	}
	return nil
}

func applyDepRemove(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p DepPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode DepRemove payload: %w", err)
	}
	dep := types.Dependency{FromID: p.FromID, ToID: p.ToID, Relation: p.Relation}

	if err := store.RemoveDependency(ctx, dep, op.HLC); err != nil {
		if errors.Is(err, werr.NotFound) {
			return store.TombstoneDependency(ctx, dep, op.HLC)
		}
		return err
	}
	return nil
}

func applyLabelAdd(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p LabelPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode LabelAdd payload: %w", err)
	}
	tomb, ok, err := store.LabelTombstoneHLC(ctx, op.TargetID, p.Label)
	if err != nil {
		return err
	}
	if ok && tomb >= op.HLC {
		return nil
	}
	return store.AddLabel(ctx, op.TargetID, p.Label)
}

func applyLabelRemove(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p LabelPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode LabelRemove payload: %w", err)
	}
	return store.TombstoneLabel(ctx, op.TargetID, p.Label, op.HLC)
}

func applyNoteAdd(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p NotePayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode NoteAdd payload: %w", err)
	}
	return store.InsertRemoteNote(ctx, types.Note{
		ID: p.NoteID, IssueID: op.TargetID, SiteID: op.SiteID,
		StatusAtWrite: p.StatusAtWrite, Content: p.Content, CreatedAt: p.CreatedAt,
	})
}

func applyLinkAdd(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p LinkPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode LinkAdd payload: %w", err)
	}
	tomb, ok, err := store.LinkTombstoneHLC(ctx, op.TargetID, p.ExternalID)
	if err != nil {
		return err
	}
	if ok && tomb >= op.HLC {
		return nil
	}
	link := types.ExternalLink{
		IssueID: op.TargetID, Type: p.Type, URL: p.URL,
		ExternalID: p.ExternalID, Relation: p.Relation, CreatedAt: opTime(op),
	}
	if present, err := store.HasLink(ctx, link); err != nil || present {
		return err
	}
	_, err = store.AddLink(ctx, link)
	return err
}

func applyLinkRemove(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p LinkPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode LinkRemove payload: %w", err)
	}
	if err := store.RemoveLink(ctx, op.TargetID, p.ExternalID, op.HLC); err != nil {
		if errors.Is(err, werr.NotFound) {
			return store.TombstoneLink(ctx, op.TargetID, p.ExternalID, op.HLC)
		}
		return err
	}
	return nil
}

func applyEventAppend(ctx context.Context, store *sqlite.Store, op types.Operation) error {
	var p EventPayload
	if err := json.Unmarshal(op.Payload, &p); err != nil {
		return fmt.Errorf("decode EventAppend payload: %w", err)
	}
	return store.RecordEvent(ctx, types.Event{
		IssueID: op.TargetID, Action: p.Action, OldValue: p.OldValue,
		NewValue: p.NewValue, Reason: p.Reason, CreatedAt: p.CreatedAt,
	})
}
