package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// AddDependency inserts a (from, to, relation) edge. Callers must have
// already run cycle detection for locally-initiated inserts;
// this layer only enforces the structural invariants (no self-edge, no
// duplicate).
func (s *Store) AddDependency(ctx context.Context, dep types.Dependency) error {
	if dep.FromID == dep.ToID {
		return werr.New(werr.ConstraintViolated, "dependency cannot reference itself")
	}
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		_, err := t.ExecContext(ctx, `
			INSERT INTO dependencies (from_id, to_id, relation, created_at, hlc, site_id) VALUES (?, ?, ?, ?, ?, ?)`,
			dep.FromID, dep.ToID, string(dep.Relation), dep.CreatedAt, uint64(dep.HLC), dep.SiteID)
		if err != nil {
			if isUniqueViolation(err) {
				return werr.Wrap(werr.ConstraintViolated, fmt.Errorf("dependency already exists: %w", err))
			}
			return fmt.Errorf("insert dependency: %w", err)
		}
		return nil
	})
}

// RemoveDependency deletes an edge and records a removal tombstone keyed
// by hlc, so a concurrent remote re-add can be ordered against it under
// the 2P-set merge rule.
func (s *Store) RemoveDependency(ctx context.Context, dep types.Dependency, hlc types.HLC) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		res, err := t.ExecContext(ctx, `
			DELETE FROM dependencies WHERE from_id=? AND to_id=? AND relation=?`,
			dep.FromID, dep.ToID, string(dep.Relation))
		if err != nil {
			return fmt.Errorf("remove dependency: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return werr.New(werr.NotFound, "dependency does not exist")
		}
		_, err = t.ExecContext(ctx, `
			INSERT INTO dep_tombstones (from_id, to_id, relation, hlc) VALUES (?, ?, ?, ?)
			ON CONFLICT (from_id, to_id, relation) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > dep_tombstones.hlc`,
			dep.FromID, dep.ToID, string(dep.Relation), uint64(hlc))
		if err != nil {
			return fmt.Errorf("tombstone dependency: %w", err)
		}
		return nil
	})
}

// TombstoneDependency upserts a removal tombstone without requiring the
// edge to currently exist, used when folding a remote DepRemove operation
// against a store that never saw the matching DepAdd.
func (s *Store) TombstoneDependency(ctx context.Context, dep types.Dependency, hlc types.HLC) error {
	return s.withTx(ctx, func(ctx context.Context, t *tx) error {
		_, err := t.ExecContext(ctx, `
			INSERT INTO dep_tombstones (from_id, to_id, relation, hlc) VALUES (?, ?, ?, ?)
			ON CONFLICT (from_id, to_id, relation) DO UPDATE SET hlc = excluded.hlc WHERE excluded.hlc > dep_tombstones.hlc`,
			dep.FromID, dep.ToID, string(dep.Relation), uint64(hlc))
		if err != nil {
			return fmt.Errorf("tombstone dependency: %w", err)
		}
		_, err = t.ExecContext(ctx, `DELETE FROM dependencies WHERE from_id=? AND to_id=? AND relation=?`,
			dep.FromID, dep.ToID, string(dep.Relation))
		if err != nil {
			return fmt.Errorf("remove dependency: %w", err)
		}
		return nil
	})
}

// AllDependencies returns every dependency edge in the store, used for
// cycle detection and blocked/ready-set computation.
func (s *Store) AllDependencies(ctx context.Context) ([]types.Dependency, error) {
	return queryDeps(ctx, s.db, `SELECT from_id, to_id, relation, created_at, hlc, site_id FROM dependencies`)
}

func (s *Store) listDepsFrom(ctx context.Context, issueID string) ([]types.Dependency, error) {
	return queryDeps(ctx, s.db, `
		SELECT from_id, to_id, relation, created_at, hlc, site_id FROM dependencies
		WHERE from_id = ? OR to_id = ?`, issueID, issueID)
}

func queryDeps(ctx context.Context, q querier, query string, args ...any) ([]types.Dependency, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []types.Dependency
	for rows.Next() {
		var d types.Dependency
		var relation string
		var hlc uint64
		if err := rows.Scan(&d.FromID, &d.ToID, &relation, &d.CreatedAt, &hlc, &d.SiteID); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		d.Relation = types.Relation(relation)
		d.HLC = types.HLC(hlc)
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// DependencyTombstoneHLC returns the HLC of a removal tombstone for the
// given edge, if any, used by remote merge to decide whether an inbound
// DepAdd should be honored.
func (s *Store) DependencyTombstoneHLC(ctx context.Context, dep types.Dependency) (types.HLC, bool, error) {
	var hlc uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT hlc FROM dep_tombstones WHERE from_id=? AND to_id=? AND relation=?`,
		dep.FromID, dep.ToID, string(dep.Relation)).Scan(&hlc)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read dependency tombstone: %w", err)
	}
	return types.HLC(hlc), true, nil
}

// WouldCycle reports whether adding edge (from -> to) under the `blocks`
// relation would create a cycle, by O(V+E) depth-first traversal from `to`
// back to `from` over the existing graph.
func WouldCycle(deps []types.Dependency, from, to string) bool {
	adj := make(map[string][]string)
	for _, d := range deps {
		if d.Relation == types.RelationBlocks {
			adj[d.FromID] = append(adj[d.FromID], d.ToID)
		}
	}

	visited := make(map[string]bool)
	var dfs func(node string) bool
	dfs = func(node string) bool {
		if node == from {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, next := range adj[node] {
			if dfs(next) {
				return true
			}
		}
		return false
	}
	return dfs(to)
}
