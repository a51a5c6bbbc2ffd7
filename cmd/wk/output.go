package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/wk-dev/wk/internal/query"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// outputMode selects -o text|id|json.
type outputMode string

const (
	outputText outputMode = "text"
	outputID   outputMode = "id"
	outputJSON outputMode = "json"
)

func parseOutputMode(s string) (outputMode, error) {
	switch outputMode(s) {
	case outputText, outputID, outputJSON, "":
		if s == "" {
			return outputText, nil
		}
		return outputMode(s), nil
	default:
		return "", werr.New(werr.InvalidInput, fmt.Sprintf("invalid -o mode %q: expected text, id, or json", s))
	}
}

// applyColorPolicy honors NO_COLOR/COLOR: NO_COLOR forces plain
// output regardless of terminal detection; COLOR forces color even when
// stdout isn't a tty (useful for piping into a colorizing pager in tests).
func applyColorPolicy() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
	if os.Getenv("COLOR") != "" {
		color.NoColor = false
	}
}

var (
	statusColor = map[types.Status]func(format string, a ...interface{}) string{
		types.StatusTodo:       color.New(color.FgWhite).SprintfFunc(),
		types.StatusInProgress: color.New(color.FgYellow).SprintfFunc(),
		types.StatusDone:       color.New(color.FgGreen).SprintfFunc(),
		types.StatusClosed:     color.New(color.FgHiBlack).SprintfFunc(),
	}
	idColor  = color.New(color.FgCyan).SprintfFunc()
	errColor = color.New(color.FgRed).SprintfFunc()
)

func printIssueLine(w io.Writer, issue *types.Issue) {
	statusFn, ok := statusColor[issue.Status]
	if !ok {
		statusFn = fmt.Sprintf
	}
	fmt.Fprintf(w, "%s  %s  %s\n", idColor("%s", issue.ID), statusFn("%-11s", issue.Status), issue.Title)
}

func printIssueList(w io.Writer, issues []*types.Issue, mode outputMode) error {
	switch mode {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(issues)
	case outputID:
		for _, issue := range issues {
			fmt.Fprintln(w, issue.ID)
		}
		return nil
	default:
		for _, issue := range issues {
			printIssueLine(w, issue)
		}
		return nil
	}
}

func printIssueDetail(w io.Writer, issue *types.Issue, mode outputMode) error {
	switch mode {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(issue)
	case outputID:
		fmt.Fprintln(w, issue.ID)
		return nil
	default:
		printIssueLine(w, issue)
		if issue.Description != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, issue.Description)
		}
		if len(issue.Labels) > 0 {
			fmt.Fprintf(w, "\nlabels: %s\n", strings.Join(issue.Labels, ", "))
		}
		if issue.Assignee != "" {
			fmt.Fprintf(w, "assignee: %s\n", issue.Assignee)
		}
		for _, dep := range issue.Deps {
			fmt.Fprintf(w, "%s %s %s\n", dep.FromID, dep.Relation, dep.ToID)
		}
		for _, note := range issue.Notes {
			fmt.Fprintf(w, "\n[%s #%d] %s\n", note.CreatedAt.Format("2006-01-02 15:04"), note.ID, note.Content)
		}
		return nil
	}
}

// printTruncationHint reports how many additional matches the ready cap
// hid, so a human reading the 5-item list knows there's more
// without it silently looking like the whole backlog.
func printTruncationHint(w io.Writer, mode outputMode, truncated int) {
	if mode == outputJSON {
		return
	}
	noun := "issue"
	if truncated != 1 {
		noun = "issues"
	}
	fmt.Fprintf(w, "... %d more ready %s not shown (ready caps at %d)\n", truncated, noun, query.ReadyLimit)
}

func reportErr(err error) {
	fmt.Fprintln(os.Stderr, errColor("error:"), err)
}
