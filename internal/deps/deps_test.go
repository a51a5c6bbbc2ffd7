package deps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
)

func issues() map[string]*types.Issue {
	return map[string]*types.Issue{
		"root": {ID: "root", Title: "Root", Status: types.StatusTodo},
		"mid":  {ID: "mid", Title: "Mid", Status: types.StatusInProgress},
		"leaf": {ID: "leaf", Title: "Leaf", Status: types.StatusDone},
	}
}

func chainDeps() []types.Dependency {
	return []types.Dependency{
		{FromID: "root", ToID: "mid", Relation: types.RelationBlocks},
		{FromID: "mid", ToID: "leaf", Relation: types.RelationBlocks},
	}
}

func TestBuildTreeWalksDownward(t *testing.T) {
	nodes := BuildTree("root", issues(), chainDeps(), 0)
	require.Len(t, nodes, 3)
	assert.Equal(t, "root", nodes[0].ID)
	assert.Equal(t, 0, nodes[0].Depth)
	assert.Equal(t, "mid", nodes[1].ID)
	assert.Equal(t, "root", nodes[1].ParentID)
	assert.Equal(t, "leaf", nodes[2].ID)
	assert.Equal(t, "mid", nodes[2].ParentID)
}

func TestBuildTreeUnknownRootReturnsNil(t *testing.T) {
	assert.Nil(t, BuildTree("missing", issues(), chainDeps(), 0))
}

func TestBuildTreeRespectsMaxDepth(t *testing.T) {
	nodes := BuildTree("root", issues(), chainDeps(), 1)
	require.Len(t, nodes, 2)
	assert.Equal(t, []string{"root", "mid"}, []string{nodes[0].ID, nodes[1].ID})
}

func TestBuildTreeDoesNotRevisitSeenNodes(t *testing.T) {
	// a diamond: root -> b, root -> c, b -> d, c -> d. d must appear once.
	diamondIssues := map[string]*types.Issue{
		"root": {ID: "root", Title: "Root", Status: types.StatusTodo},
		"b":    {ID: "b", Title: "B", Status: types.StatusTodo},
		"c":    {ID: "c", Title: "C", Status: types.StatusTodo},
		"d":    {ID: "d", Title: "D", Status: types.StatusTodo},
	}
	diamondDeps := []types.Dependency{
		{FromID: "root", ToID: "b", Relation: types.RelationBlocks},
		{FromID: "root", ToID: "c", Relation: types.RelationBlocks},
		{FromID: "b", ToID: "d", Relation: types.RelationBlocks},
		{FromID: "c", ToID: "d", Relation: types.RelationBlocks},
	}
	nodes := BuildTree("root", diamondIssues, diamondDeps, 0)
	count := 0
	for _, n := range nodes {
		if n.ID == "d" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuildReverseTreeWalksUpward(t *testing.T) {
	nodes := BuildReverseTree("leaf", issues(), chainDeps(), 0)
	require.Len(t, nodes, 3)
	assert.Equal(t, "leaf", nodes[0].ID)
	assert.Equal(t, "mid", nodes[1].ID)
	assert.Equal(t, "root", nodes[2].ID)
}

func TestGetStatusGlyph(t *testing.T) {
	assert.Equal(t, "☐", GetStatusGlyph(types.StatusTodo))
	assert.Equal(t, "◧", GetStatusGlyph(types.StatusInProgress))
	assert.Equal(t, "☑", GetStatusGlyph(types.StatusDone))
	assert.Equal(t, "☒", GetStatusGlyph(types.StatusClosed))
}

func TestOutputMermaidTreeEmpty(t *testing.T) {
	var sb strings.Builder
	OutputMermaidTree(&sb, nil, "root")
	out := sb.String()
	assert.Contains(t, out, "flowchart TD")
	assert.Contains(t, out, "No dependencies")
}

func TestOutputMermaidTreeEscapesQuotes(t *testing.T) {
	tree := []*TreeNode{{ID: "root", Title: `say "hi"`, Status: types.StatusTodo}}
	var sb strings.Builder
	OutputMermaidTree(&sb, tree, "root")
	assert.Contains(t, sb.String(), `\"hi\"`)
}

func TestOutputMermaidTreeEdges(t *testing.T) {
	nodes := BuildTree("root", issues(), chainDeps(), 0)
	var sb strings.Builder
	OutputMermaidTree(&sb, nodes, "root")
	out := sb.String()
	assert.Contains(t, out, "root --> mid")
	assert.Contains(t, out, "mid --> leaf")
}

func TestRendererRenderBoxDrawing(t *testing.T) {
	nodes := BuildTree("root", issues(), chainDeps(), 0)
	var sb strings.Builder
	r := &Renderer{}
	r.Render(&sb, nodes)
	out := sb.String()
	assert.Contains(t, out, "Root")
	assert.Contains(t, out, "└── ")
	assert.Contains(t, out, "Mid")
	assert.Contains(t, out, "Leaf")
}

func TestRendererRenderEmptyTree(t *testing.T) {
	var sb strings.Builder
	r := &Renderer{}
	r.Render(&sb, nil)
	assert.Empty(t, sb.String())
}

func TestRendererRenderMarksTracksRelation(t *testing.T) {
	tree := []*TreeNode{
		{ID: "root", Title: "Root", Status: types.StatusTodo, Depth: 0},
		{ID: "child", ParentID: "root", Title: "Child", Status: types.StatusTodo, Relation: types.RelationTracks, Depth: 1},
	}
	var sb strings.Builder
	r := &Renderer{}
	r.Render(&sb, tree)
	assert.Contains(t, sb.String(), "(tracks)")
}
