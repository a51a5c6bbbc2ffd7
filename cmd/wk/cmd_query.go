package main

import (
	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/query"
)

// filterFlags are the repeatable --filter "FIELD OP VALUE" expressions
// shared by list and search; each flag contributes one
// implicitly-ANDed query.Expr.
func parseFilterFlags(raw []string) ([]*query.Expr, error) {
	exprs := make([]*query.Expr, 0, len(raw))
	for _, f := range raw {
		expr, err := query.Parse(f)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID...",
		Short: "Show one or more issues in full",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			mode, err := parseOutputMode(flagOutput)
			if err != nil {
				return err
			}

			ids, err := e.resolveIDs(rootCtx, args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				issue, err := e.store.GetIssue(rootCtx, id)
				if err != nil {
					return err
				}
				if err := printIssueDetail(cmd.OutOrStdout(), issue, mode); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

func newListCmd() *cobra.Command {
	var filters []string
	var offset, limit int
	var unlimited bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues matching filter flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exprs, err := parseFilterFlags(filters)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") && limit == 0 {
				unlimited = true
			}
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			issues, err := e.store.List(rootCtx, exprs, offset, limit, unlimited)
			if err != nil {
				return err
			}
			mode, err := parseOutputMode(flagOutput)
			if err != nil {
				return err
			}
			return printIssueList(cmd.OutOrStdout(), issues, mode)
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter expression \"FIELD OP VALUE\" or a bare status (repeatable)")
	cmd.Flags().IntVar(&offset, "offset", 0, "row offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "row limit (explicit 0 = unlimited)")
	cmd.Flags().BoolVar(&unlimited, "all", false, "ignore the limit and return every matching row")
	return cmd
}

func newReadyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List issues with no open blocking dependency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			issues, truncated, err := e.store.Ready(rootCtx)
			if err != nil {
				return err
			}
			mode, err := parseOutputMode(flagOutput)
			if err != nil {
				return err
			}
			if err := printIssueList(cmd.OutOrStdout(), issues, mode); err != nil {
				return err
			}
			if truncated > 0 {
				printTruncationHint(cmd.ErrOrStderr(), mode, truncated)
			}
			return nil
		},
	}
	return cmd
}

func newSearchCmd() *cobra.Command {
	var offset, limit int
	var unlimited bool
	cmd := &cobra.Command{
		Use:   "search Q",
		Short: "Case-insensitive substring search over title, description, notes, labels, and links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") && limit == 0 {
				unlimited = true
			}
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			issues, err := e.store.Search(rootCtx, args[0], offset, limit, unlimited)
			if err != nil {
				return err
			}
			mode, err := parseOutputMode(flagOutput)
			if err != nil {
				return err
			}
			return printIssueList(cmd.OutOrStdout(), issues, mode)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "row offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "row limit (explicit 0 = unlimited)")
	cmd.Flags().BoolVar(&unlimited, "all", false, "ignore the limit and return every matching row")
	return cmd
}
