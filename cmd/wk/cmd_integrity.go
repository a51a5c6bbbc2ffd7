package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
)

// newIntegrityCmd surfaces the store's integrity check (exit code 5 on
// failure) and, with --rebuild, the deterministic replay that
// reconstructs the materialized store from the operation log.
func newIntegrityCmd() *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Check the backing store, optionally rebuilding it from the operation log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			if !rebuild {
				if err := e.store.IntegrityCheck(rootCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}

			// Replay the log into a fresh store file, then swap it in. The
			// old file survives as .bak until the next rebuild.
			rebuiltPath := filepath.Join(e.dir, dbFileName+".rebuild")
			os.Remove(rebuiltPath)
			rebuilt, err := sqlite.Init(rootCtx, rebuiltPath, e.cfg.Prefix)
			if err != nil {
				return err
			}
			if err := rebuilt.AdoptSiteID(rootCtx, e.store.SiteID); err != nil {
				rebuilt.Close()
				return err
			}
			if err := oplog.Replay(rootCtx, e.log, rebuilt); err != nil {
				rebuilt.Close()
				return err
			}
			if err := rebuilt.Close(); err != nil {
				return err
			}

			// Close the live store before touching its file so its WAL is
			// checkpointed and no sidecar -wal/-shm files outlive the swap.
			if err := e.store.Close(); err != nil {
				return fmt.Errorf("close store for rebuild: %w", err)
			}
			livePath := filepath.Join(e.dir, dbFileName)
			if err := os.Rename(livePath, livePath+".bak"); err != nil {
				return fmt.Errorf("back up store: %w", err)
			}
			os.Remove(livePath + "-wal")
			os.Remove(livePath + "-shm")
			if err := os.Rename(rebuiltPath, livePath); err != nil {
				return fmt.Errorf("swap rebuilt store: %w", err)
			}
			os.Rename(rebuiltPath+"-wal", livePath+"-wal")
			os.Rename(rebuiltPath+"-shm", livePath+"-shm")
			fmt.Fprintln(cmd.OutOrStdout(), "rebuilt from operation log")
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "rebuild the store by replaying the operation log")
	return cmd
}
