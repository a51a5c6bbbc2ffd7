// Command wk is the CLI surface over the Storage Engine, Lifecycle
// Controller, and Sync Daemon: every subcommand opens the store discovered
// from the current directory (or --path), applies one mutation or query,
// and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wk-dev/wk/internal/configfile"
	"github.com/wk-dev/wk/internal/ids"
	"github.com/wk-dev/wk/internal/lifecycle"
	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/resolve"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/werr"
)

// storeDirName is the store directory's conventional name within a
// project.
const storeDirName = ".wk"

// dbFileName is the backing store file inside storeDirName.
const dbFileName = "issues.db"

// env bundles every handle a command needs once its store is open.
type env struct {
	dir        string
	store      *sqlite.Store
	log        *oplog.Log
	clock      *ids.Clock
	cfg        *configfile.Config
	controller *lifecycle.Controller
}

// findStoreDir walks up from the current directory looking for a .wk
// directory, so any subdirectory of a project resolves to its store.
func findStoreDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, storeDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
				return resolved
			}
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// openEnv discovers and opens the store, erroring with werr.NotFound's
// "not initialized" sibling (exit code 4) if none is found. projectDir, if
// non-empty, names the project root whose .wk subdirectory to use instead
// of walking up from the current directory.
func openEnv(ctx context.Context, projectDir string) (*env, error) {
	dir := ""
	if projectDir != "" {
		dir = filepath.Join(projectDir, storeDirName)
	} else {
		dir = findStoreDir()
	}
	if dir == "" {
		return nil, errNotInitialized
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errNotInitialized
	}

	store, err := sqlite.Open(ctx, filepath.Join(dir, dbFileName))
	if err != nil {
		return nil, err
	}
	log, err := oplog.Open(dir)
	if err != nil {
		store.Close()
		return nil, err
	}
	cfg, err := configfile.Load(dir)
	if err != nil {
		log.Close()
		store.Close()
		return nil, err
	}

	clock := ids.NewClock()
	return &env{
		dir:        dir,
		store:      store,
		log:        log,
		clock:      clock,
		cfg:        cfg,
		controller: lifecycle.New(store, clock, log),
	}, nil
}

func (e *env) Close() {
	e.log.Close()
	e.store.Close()
}

// resolveID resolves a partial or exact id against the store's full id
// list, via
// internal/resolve. The Lifecycle Controller itself requires an exact id.
func (e *env) resolveID(ctx context.Context, ref string) (string, error) {
	return resolve.Resolve(ref, func() ([]string, error) {
		return e.store.AllIssueIDs(ctx)
	})
}

func (e *env) resolveIDs(ctx context.Context, refs []string) ([]string, error) {
	lister := func() ([]string, error) { return e.store.AllIssueIDs(ctx) }
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := resolve.Resolve(ref, lister)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// errNotInitialized maps to exit code 4, distinct from
// werr.NotFound's exit code 1 for "no such issue": no store exists at all
// versus a store that exists but lacks the requested id.
var errNotInitialized = fmt.Errorf("no %s store found in this directory or its parents (run `wk init` first)", storeDirName)

// exitCodeNotInitialized is errNotInitialized's process exit code.
const exitCodeNotInitialized = 4

// exitCode maps any command error to its process exit code.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if err == errNotInitialized {
		return exitCodeNotInitialized
	}
	return werr.ExitCode(err)
}
