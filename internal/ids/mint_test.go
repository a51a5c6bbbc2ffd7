package ids

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintIssueIDNoCollision(t *testing.T) {
	id, err := MintIssueID("prj", func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Regexp(t, `^prj-[0-9a-f]{8}$`, id)
}

func TestMintIssueIDRetriesOnCollision(t *testing.T) {
	attempts := 0
	id, err := MintIssueID("prj", func(string) (bool, error) {
		attempts++
		return attempts < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Regexp(t, `^prj-[0-9a-f]{8}$`, id)
}

func TestMintIssueIDExhaustsRetries(t *testing.T) {
	attempts := 0
	_, err := MintIssueID("prj", func(string) (bool, error) {
		attempts++
		return true, nil
	})
	require.Error(t, err)
	assert.Equal(t, MaxMintRetries, attempts)
}

func TestMintIssueIDPropagatesExistsError(t *testing.T) {
	sentinel := errors.New("store unavailable")
	_, err := MintIssueID("prj", func(string) (bool, error) { return false, sentinel })
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestValidPrefix(t *testing.T) {
	cases := map[string]bool{
		"prj":  true,
		"ab":   true,
		"a1":   true,
		"12":   false,
		"a":    false,
		"":     false,
		"PRJ":  false,
		"p_j":  false,
		"pr-j": false,
	}
	for prefix, want := range cases {
		assert.Equal(t, want, ValidPrefix(prefix), "prefix %q", prefix)
	}
}
