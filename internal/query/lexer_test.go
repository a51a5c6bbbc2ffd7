package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerSymbolicOperators(t *testing.T) {
	tests := map[string]TokenType{
		"<":  TokenLess,
		"<=": TokenLessEq,
		">":  TokenGreater,
		">=": TokenGreaterEq,
		"=":  TokenEquals,
		"!=": TokenNotEquals,
	}
	for input, want := range tests {
		l := NewLexer(input)
		tok, err := l.NextToken()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Type, "input %q", input)
	}
}

func TestLexerBangWithoutEqualsErrors(t *testing.T) {
	l := NewLexer("!")
	_, err := l.NextToken()
	assert.Error(t, err)
}

func TestLexerIdent(t *testing.T) {
	l := NewLexer("  age ")
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenIdent, tok.Type)
	assert.Equal(t, "age", tok.Value)
}

func TestLexerNumberAndDuration(t *testing.T) {
	cases := map[string]struct {
		typ TokenType
		val string
	}{
		"30":   {TokenNumber, "30"},
		"30d":  {TokenDuration, "30d"},
		"100ms": {TokenDuration, "100ms"},
		"2w":   {TokenDuration, "2w"},
		"1M":   {TokenDuration, "1M"},
		"1y":   {TokenDuration, "1y"},
	}
	for input, want := range cases {
		l := NewLexer(input)
		tok, err := l.NextToken()
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want.typ, tok.Type, "input %q", input)
		assert.Equal(t, want.val, tok.Value, "input %q", input)
	}
}

func TestLexerQuotedString(t *testing.T) {
	l := NewLexer(`"hello world"`)
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "hello world", tok.Value)
}

func TestLexerUnterminatedString(t *testing.T) {
	l := NewLexer(`"oops`)
	_, err := l.NextToken()
	assert.Error(t, err)
}

func TestLexerEOF(t *testing.T) {
	l := NewLexer("")
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TokenEOF, tok.Type)
}

func TestLexerTokenizeSequence(t *testing.T) {
	l := NewLexer("age > 30d")
	toks, err := l.Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 4) // ident, op, duration, EOF
	assert.Equal(t, TokenIdent, toks[0].Type)
	assert.Equal(t, TokenGreater, toks[1].Type)
	assert.Equal(t, TokenDuration, toks[2].Type)
	assert.Equal(t, TokenEOF, toks[3].Type)
}

func TestLexerRestAfterToken(t *testing.T) {
	l := NewLexer("age > 2024-01-01")
	_, err := l.NextToken() // "age"
	require.NoError(t, err)
	_, err = l.NextToken() // ">"
	require.NoError(t, err)
	assert.Equal(t, " 2024-01-01", l.rest())
}
