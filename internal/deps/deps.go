// Package deps renders the dependency graph for the `tree` command:
// walking `blocks`/`tracks` edges from a root issue, box-drawing and
// Mermaid.js output, and status glyphs.
package deps

import (
	"fmt"
	"strings"

	"github.com/wk-dev/wk/internal/types"
)

// Direction selects which edges a tree walk follows from the root.
type Direction string

const (
	// DirectionBlocks walks from the root to the issues it blocks or
	// tracks (the edge's to side).
	DirectionBlocks Direction = "down"
	// DirectionBlockedBy walks from the root to the issues that block or
	// track it (the edge's from side).
	DirectionBlockedBy Direction = "up"
)

// TreeNode is one row of a rendered dependency tree.
type TreeNode struct {
	ID       string
	ParentID string
	Title    string
	Status   types.Status
	Relation types.Relation
	Depth    int
}

// BuildTree walks deps from root in the given direction, bounded by
// maxDepth (0 means unlimited), returning nodes in a stable pre-order
// (root first, then each child's subtree). A node already seen higher in
// the walk is not revisited, so a diamond or (illegally reintroduced)
// cycle in the graph terminates rather than looping.
func BuildTree(root string, issues map[string]*types.Issue, dependencies []types.Dependency, maxDepth int) []*TreeNode {
	rootIssue, ok := issues[root]
	if !ok {
		return nil
	}

	children := make(map[string][]types.Dependency)
	for _, d := range dependencies {
		children[d.FromID] = append(children[d.FromID], d)
	}

	var nodes []*TreeNode
	seen := map[string]bool{root: true}
	nodes = append(nodes, &TreeNode{ID: root, Title: rootIssue.Title, Status: rootIssue.Status, Depth: 0})

	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, d := range children[id] {
			if seen[d.ToID] {
				continue
			}
			seen[d.ToID] = true
			issue, ok := issues[d.ToID]
			title := d.ToID
			status := types.StatusTodo
			if ok {
				title, status = issue.Title, issue.Status
			}
			nodes = append(nodes, &TreeNode{ID: d.ToID, ParentID: id, Title: title, Status: status, Relation: d.Relation, Depth: depth + 1})
			walk(d.ToID, depth+1)
		}
	}
	walk(root, 0)
	return nodes
}

// BuildReverseTree walks the graph in the opposite direction: every issue
// that (transitively) blocks or tracks root.
func BuildReverseTree(root string, issues map[string]*types.Issue, dependencies []types.Dependency, maxDepth int) []*TreeNode {
	reversed := make([]types.Dependency, len(dependencies))
	for i, d := range dependencies {
		reversed[i] = types.Dependency{FromID: d.ToID, ToID: d.FromID, Relation: d.Relation, CreatedAt: d.CreatedAt}
	}
	return BuildTree(root, issues, reversed, maxDepth)
}

// GetStatusGlyph returns a single-character indicator for a status,
// used by both the box-drawing and Mermaid renderers.
func GetStatusGlyph(status types.Status) string {
	switch status {
	case types.StatusTodo:
		return "☐" // ballot box
	case types.StatusInProgress:
		return "◧" // square, left half black
	case types.StatusDone:
		return "☑" // ballot box with check
	case types.StatusClosed:
		return "☒" // ballot box with X
	default:
		return "?"
	}
}

// OutputMermaidTree renders tree as a Mermaid.js flowchart to w.
func OutputMermaidTree(w *strings.Builder, tree []*TreeNode, rootID string) {
	if len(tree) == 0 {
		fmt.Fprintln(w, "flowchart TD")
		fmt.Fprintf(w, "  %s[\"No dependencies\"]\n", rootID)
		return
	}

	fmt.Fprintln(w, "flowchart TD")
	seen := make(map[string]bool)
	for _, node := range tree {
		if seen[node.ID] {
			continue
		}
		seen[node.ID] = true
		label := fmt.Sprintf("%s %s: %s", GetStatusGlyph(node.Status), node.ID, node.Title)
		label = strings.ReplaceAll(label, "\\", "\\\\")
		label = strings.ReplaceAll(label, "\"", "\\\"")
		fmt.Fprintf(w, "  %s[\"%s\"]\n", node.ID, label)
	}
	fmt.Fprintln(w)
	for _, node := range tree {
		if node.ParentID != "" {
			fmt.Fprintf(w, "  %s --> %s\n", node.ParentID, node.ID)
		}
	}
}

// Renderer draws a tree with box-drawing connectors, one line per node.
type Renderer struct {
	NoColor bool
}

// Render writes tree to w using ├──/└──/│ connectors, mirroring the
// layout of `tree` command output in comparable CLI issue trackers.
func (r *Renderer) Render(w *strings.Builder, tree []*TreeNode) {
	if len(tree) == 0 {
		return
	}

	childIndex := make(map[string][]*TreeNode)
	var root *TreeNode
	for _, n := range tree {
		if n.Depth == 0 {
			root = n
		} else {
			childIndex[n.ParentID] = append(childIndex[n.ParentID], n)
		}
	}
	if root == nil {
		root = tree[0]
	}

	fmt.Fprintf(w, "%s %s: %s\n", GetStatusGlyph(root.Status), root.ID, root.Title)
	r.renderChildren(w, root.ID, childIndex, nil)
}

func (r *Renderer) renderChildren(w *strings.Builder, parentID string, childIndex map[string][]*TreeNode, prefix []bool) {
	kids := childIndex[parentID]
	for i, node := range kids {
		last := i == len(kids)-1
		for _, open := range prefix {
			if open {
				w.WriteString("│   ")
			} else {
				w.WriteString("    ")
			}
		}
		if last {
			w.WriteString("└── ")
		} else {
			w.WriteString("├── ")
		}

		relation := ""
		if node.Relation == types.RelationTracks {
			relation = " (tracks)"
		}
		fmt.Fprintf(w, "%s %s: %s%s\n", GetStatusGlyph(node.Status), node.ID, node.Title, relation)

		r.renderChildren(w, node.ID, childIndex, append(prefix, !last))
	}
}
