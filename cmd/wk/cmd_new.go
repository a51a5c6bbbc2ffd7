package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

var knownIssueTypes = map[string]types.IssueType{
	"feature": types.TypeFeature,
	"task":    types.TypeTask,
	"bug":     types.TypeBug,
	"chore":   types.TypeChore,
	"idea":    types.TypeIdea,
	"epic":    types.TypeEpic,
}

func newNewCmd() *cobra.Command {
	var labels, notes []string
	var prefix string
	cmd := &cobra.Command{
		Use:   "new [TYPE] TITLE",
		Short: "Create issue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issueType := types.TypeTask
			title := strings.Join(args, " ")
			if t, ok := knownIssueTypes[strings.ToLower(args[0])]; ok {
				issueType = t
				title = strings.Join(args[1:], " ")
			}
			if strings.TrimSpace(title) == "" {
				return werr.New(werr.InvalidInput, "a title is required")
			}

			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			if prefix == "" {
				prefix = e.cfg.Prefix
			}

			issue, err := e.controller.NewIssue(rootCtx, prefix, issueType, title, "")
			if err != nil {
				return err
			}

			for _, label := range labels {
				if err := e.controller.AddLabel(rootCtx, issue.ID, label); err != nil {
					return err
				}
				issue.Labels = append(issue.Labels, label)
			}
			for _, note := range notes {
				if _, err := e.controller.AddNote(rootCtx, issue.ID, note); err != nil {
					return err
				}
			}

			mode, err := parseOutputMode(flagOutput)
			if err != nil {
				return err
			}
			if mode == outputText {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) %s %s\n", issue.ID, issue.Status, issue.IssueType, issue.Title)
				return nil
			}
			return printIssueDetail(cmd.OutOrStdout(), issue, mode)
		},
	}
	cmd.Flags().StringArrayVar(&labels, "label", nil, "label to attach (repeatable)")
	cmd.Flags().StringArrayVar(&notes, "note", nil, "note to attach (repeatable)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "id prefix override (defaults to the store's configured prefix)")
	return cmd
}
