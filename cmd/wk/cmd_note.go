package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note ID CONTENT",
		Short: "Append a note to an issue",
		Args:  cobra.MinimumNArgs(2),
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
			content := strings.Join(args[1:], " ")
			note, err := e.controller.AddNote(rootCtx, id, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: note #%d added\n", id, note.ID)
			return nil
		},
	}
	return cmd
}
