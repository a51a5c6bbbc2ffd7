package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/werr"
)

func lister(ids ...string) Lister {
	return func() ([]string, error) { return ids, nil }
}

func TestResolveExactMatchBypassesMinPrefixLen(t *testing.T) {
	full, err := Resolve("ab", lister("ab", "abcdef01"))
	require.NoError(t, err)
	assert.Equal(t, "ab", full)
}

func TestResolveUniquePrefix(t *testing.T) {
	full, err := Resolve("abc", lister("abcdef01", "xyz99999"))
	require.NoError(t, err)
	assert.Equal(t, "abcdef01", full)
}

func TestResolveAmbiguousPrefix(t *testing.T) {
	_, err := Resolve("abc", lister("abcdef01", "abczzz99"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.NotFound))

	var ambig *AmbiguousError
	require.True(t, errors.As(err, &ambig))
	assert.Equal(t, "abc", ambig.Partial)
	assert.Equal(t, []string{"abcdef01", "abczzz99"}, ambig.Candidates)
}

func TestResolveTooShortNonexistentRef(t *testing.T) {
	_, err := Resolve("ab", lister("abcdef01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidInput))
}

func TestResolveNoMatch(t *testing.T) {
	_, err := Resolve("zzz", lister("abcdef01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.NotFound))
}

func TestResolveListerError(t *testing.T) {
	sentinel := errors.New("store unavailable")
	_, err := Resolve("abc", func() ([]string, error) { return nil, sentinel })
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestResolveAllResolvesEachRef(t *testing.T) {
	ids := lister("abcdef01", "xyz99999")
	out, err := ResolveAll([]string{"abc", "xyz99999"}, ids)
	require.NoError(t, err)
	assert.Equal(t, []string{"abcdef01", "xyz99999"}, out)
}

func TestResolveAllFirstErrorWins(t *testing.T) {
	ids := lister("abcdef01", "xyz99999")
	_, err := ResolveAll([]string{"abc", "nope"}, ids)
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.NotFound))
}
