package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLabelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label ID... -- LABEL...",
		Short: "Attach labels to one or more issues",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyLabels(cmd, args, true)
		},
	}
	return cmd
}

func newUnlabelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlabel ID... -- LABEL...",
		Short: "Remove labels from one or more issues",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyLabels(cmd, args, false)
		},
	}
	return cmd
}

// applyLabels splits args into a leading run of resolvable issue ids and a
// trailing run of labels: the split point is
// the first argument that does not resolve to an existing issue id.
func applyLabels(cmd *cobra.Command, args []string, add bool) error {
	e, err := openEnv(rootCtx, flagPath)
	if err != nil {
		return err
	}
	defer e.Close()

	split := len(args)
	for i, a := range args {
		if _, err := e.resolveID(rootCtx, a); err != nil {
			split = i
			break
		}
	}
	if split == 0 || split == len(args) {
		return fmt.Errorf("expected at least one issue id followed by at least one label")
	}
	ids, err := e.resolveIDs(rootCtx, args[:split])
	if err != nil {
		return err
	}
	labels := args[split:]

	for _, id := range ids {
		for _, label := range labels {
			var err error
			if add {
				err = e.controller.AddLabel(rootCtx, id, label)
			} else {
				err = e.controller.RemoveLabel(rootCtx, id, label)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
