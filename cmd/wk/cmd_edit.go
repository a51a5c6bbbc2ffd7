package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit ID FIELD VALUE",
		Short: "Mutate a field (title, type, assignee, or description)",
		Args:  cobra.MinimumNArgs(3),
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
			field := args[1]
			value := strings.Join(args[2:], " ")

			issue, err := e.controller.Edit(rootCtx, id, field, value)
			if err != nil {
				return err
			}
			mode, err := parseOutputMode(flagOutput)
			if err != nil {
				return err
			}
			return printIssueDetail(cmd.OutOrStdout(), issue, mode)
		},
	}
	return cmd
}
