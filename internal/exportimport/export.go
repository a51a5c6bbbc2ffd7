// Package exportimport implements the JSONL export/import round-trip:
// one types.ExportRecord per line, read with a bufio.Scanner whose line
// buffer is enlarged to fit a pathological note or description.
package exportimport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/types"
)

// maxLineSize bounds a single JSONL record (a pathological
// note/description could otherwise make a single line larger than
// bufio.Scanner's default 64 KiB buffer).
const maxLineSize = 10 << 20

// Export writes every issue in store as one ExportRecord per line, sorted
// by id for a deterministic diff-friendly output.
func Export(ctx context.Context, store *sqlite.Store, w io.Writer) error {
	issues, err := store.AllIssues(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })

	enc := json.NewEncoder(w)
	for _, issue := range issues {
		rec := types.ExportRecord{
			ID: issue.ID, IssueType: issue.IssueType, Status: issue.Status,
			Title: issue.Title, Description: issue.Description, Labels: issue.Labels,
			Notes: issue.Notes, Deps: issue.Deps, Events: issue.Events,
			CreatedAt: issue.CreatedAt, UpdatedAt: issue.UpdatedAt,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("export %s: %w", issue.ID, err)
		}
	}
	return nil
}

// ReadAll parses every record from r, one JSON object per line, skipping
// blank lines.
func ReadAll(r io.Reader) ([]types.ExportRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []types.ExportRecord
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec types.ExportRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read export stream: %w", err)
	}
	return records, nil
}
