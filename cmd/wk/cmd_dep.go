package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/lifecycle"
)

func newDepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dep ID KIND ID",
		Short: "Add a dependency edge (blocks, blocked-by, tracks, or tracked-by)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			from, err := e.resolveID(rootCtx, args[0])
			if err != nil {
				return err
			}
			to, err := e.resolveID(rootCtx, args[2])
			if err != nil {
				return err
			}
			return e.controller.AddDep(rootCtx, from, to, lifecycle.DepKind(args[1]))
		},
	}
	return cmd
}

func newUndepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undep ID KIND ID",
		Short: "Remove a dependency edge",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			from, err := e.resolveID(rootCtx, args[0])
			if err != nil {
				return err
			}
			to, err := e.resolveID(rootCtx, args[2])
			if err != nil {
				return err
			}
			if err := e.controller.RemoveDep(rootCtx, from, to, lifecycle.DepKind(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s %s\n", from, args[1], to)
			return nil
		},
	}
	return cmd
}
