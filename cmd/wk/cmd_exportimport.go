package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/exportimport"
	"github.com/wk-dev/wk/internal/werr"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export PATH",
		Short: "Write every issue as one JSON object per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()

			return exportimport.Export(rootCtx, e.store, f)
		},
	}
	return cmd
}

func newImportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import PATH",
		Short: "Load issues from a JSON-lines export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "native" && format != "bd" {
				return werr.New(werr.InvalidInput, fmt.Sprintf("invalid --format %q: expected native or bd", format))
			}
			if format == "bd" {
				return werr.New(werr.InvalidInput, "--format bd is not supported: no bd-compatible hierarchical id scheme is materialized in this store")
			}

			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			records, err := exportimport.ReadAll(f)
			if err != nil {
				return err
			}

			results := exportimport.Import(rootCtx, e.store, e.clock, records)
			var failed int
			for _, r := range results {
				switch {
				case r.Err != nil:
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.ID, r.Err)
				case r.Skipped:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped (already exists)\n", r.ID)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: imported\n", r.ID)
				}
			}
			if failed > 0 {
				return werr.New(werr.PartialFailure, fmt.Sprintf("%d of %d records failed to import", failed, len(results)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "native", "import format: native or bd")
	return cmd
}
