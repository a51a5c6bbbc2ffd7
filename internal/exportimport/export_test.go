package exportimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllParsesLines(t *testing.T) {
	input := `{"id":"a1","title":"First"}
{"id":"a2","title":"Second"}
`
	records, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a1", records[0].ID)
	assert.Equal(t, "Second", records[1].Title)
}

func TestReadAllSkipsBlankLines(t *testing.T) {
	input := "{\"id\":\"a1\"}\n\n   \n{\"id\":\"a2\"}\n"
	records, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadAllEmptyInput(t *testing.T) {
	records, err := ReadAll(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadAllInvalidJSONReportsLineNumber(t *testing.T) {
	input := "{\"id\":\"a1\"}\nnot json\n"
	_, err := ReadAll(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadAllPreservesNestedFields(t *testing.T) {
	input := `{"id":"a1","labels":["bug","p0"],"notes":[{"content":"hi"}]}` + "\n"
	records, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"bug", "p0"}, records[0].Labels)
	require.Len(t, records[0].Notes, 1)
	assert.Equal(t, "hi", records[0].Notes[0].Content)
}
