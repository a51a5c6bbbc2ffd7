package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/lifecycle"
)

var transitionVerbs = map[string]lifecycle.Transition{
	"start":  lifecycle.Start,
	"done":   lifecycle.Done,
	"close":  lifecycle.Close,
	"reopen": lifecycle.Reopen,
}

// newTransitionCmd builds the start/done/close/reopen commands, which
// share the same bulk-id/--reason/partial-failure shape.
func newTransitionCmd(verb string) *cobra.Command {
	transition := transitionVerbs[verb]
	var reason string
	cmd := &cobra.Command{
		Use:   verb + " ID...",
		Short: fmt.Sprintf("Transition one or more issues via %q", verb),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			ids, err := e.resolveIDs(rootCtx, args)
			if err != nil {
				return err
			}

			results := e.controller.ApplyBulk(rootCtx, transition, ids, reason)
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.ID, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", r.ID, r.Issue.Status)
			}
			return lifecycle.BulkErr(results)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason required for close, reopen-from-terminal, and done-from-todo")
	return cmd
}
