package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/deps"
	"github.com/wk-dev/wk/internal/types"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [ID]",
		Short: "Show the audit event log, for one issue or the whole store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			var events []types.Event
			if len(args) == 1 {
				id, err := e.resolveID(rootCtx, args[0])
				if err != nil {
					return err
				}
				issue, err := e.store.GetIssue(rootCtx, id)
				if err != nil {
					return err
				}
				events = issue.Events
			} else {
				events, err = e.store.AllEvents(rootCtx)
				if err != nil {
					return err
				}
			}

			for _, ev := range events {
				line := fmt.Sprintf("%s  %-8s %s", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Action, ev.IssueID)
				if ev.OldValue != "" || ev.NewValue != "" {
					line += fmt.Sprintf("  %s -> %s", ev.OldValue, ev.NewValue)
				}
				if ev.Reason != "" {
					line += "  (" + ev.Reason + ")"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	return cmd
}

func newTreeCmd() *cobra.Command {
	var reverse, mermaid bool
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "tree ID",
		Short: "Render the dependency tree rooted at an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			root, err := e.resolveID(rootCtx, args[0])
			if err != nil {
				return err
			}
			issues, err := e.store.AllIssues(rootCtx)
			if err != nil {
				return err
			}
			dependencies, err := e.store.AllDependencies(rootCtx)
			if err != nil {
				return err
			}
			byID := make(map[string]*types.Issue, len(issues))
			for _, issue := range issues {
				byID[issue.ID] = issue
			}

			var nodes []*deps.TreeNode
			if reverse {
				nodes = deps.BuildReverseTree(root, byID, dependencies, maxDepth)
			} else {
				nodes = deps.BuildTree(root, byID, dependencies, maxDepth)
			}

			var b strings.Builder
			if mermaid {
				deps.OutputMermaidTree(&b, nodes, root)
			} else {
				r := &deps.Renderer{}
				r.Render(&b, nodes)
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&reverse, "reverse", false, "walk the issues that block or track the root instead of the issues it blocks or tracks")
	cmd.Flags().BoolVar(&mermaid, "mermaid", false, "render as a Mermaid.js flowchart instead of box-drawing text")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum depth to walk (0 = unlimited)")
	return cmd
}
