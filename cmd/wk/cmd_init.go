package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/configfile"
	"github.com/wk-dev/wk/internal/storage/sqlite"
)

func newInitCmd() *cobra.Command {
	var prefix, remote, workspace string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or link a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			base := flagPath
			if base == "" {
				base = workspace
			}
			if base == "" {
				var err error
				base, err = os.Getwd()
				if err != nil {
					return err
				}
			}
			dir := filepath.Join(base, storeDirName)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create store directory: %w", err)
			}

			if prefix == "" {
				prefix = filepath.Base(base)
			}

			store, err := sqlite.Init(rootCtx, filepath.Join(dir, dbFileName), prefix)
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := &configfile.Config{Prefix: prefix}
			if remote != "" {
				cfg.Remote = &configfile.RemoteConfig{URL: remote}
			}
			if err := cfg.Save(dir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized store %s with prefix %q\n", dir, prefix)
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "id prefix for this store (defaults to the directory name)")
	cmd.Flags().StringVar(&remote, "remote", "", "remote URL for the [remote] config section")
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace root directory, if different from --path")
	return cmd
}
