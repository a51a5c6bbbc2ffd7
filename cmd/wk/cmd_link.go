package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/types"
)

func newLinkCmd() *cobra.Command {
	var linkType, relation string
	cmd := &cobra.Command{
		Use:   "link ID URL [EXTERNAL_ID]",
		Short: "Attach an external reference to an issue",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			id, err := e.resolveID(rootCtx, args[0])
			if err != nil {
				return err
			}
			link := types.ExternalLink{Type: linkType, URL: args[1], Relation: relation}
			if len(args) == 3 {
				link.ExternalID = args[2]
			}
			created, err := e.controller.AddLink(rootCtx, id, link)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: link #%d added (%s)\n", id, created.ID, created.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&linkType, "type", "", "link type, e.g. \"pr\", \"doc\", \"ticket\"")
	cmd.Flags().StringVar(&relation, "relation", "", "relation, e.g. \"fixes\", \"relates-to\"")
	return cmd
}

func newUnlinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlink ID EXTERNAL_ID",
		Short: "Remove an external link by its external id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			id, err := e.resolveID(rootCtx, args[0])
			if err != nil {
				return err
			}
			if err := e.controller.RemoveLink(rootCtx, id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: link %s removed\n", id, args[1])
			return nil
		},
	}
	return cmd
}
