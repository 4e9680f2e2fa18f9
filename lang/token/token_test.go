package token_test

import (
	"testing"

	"github.com/loxscript/loxvm/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywords(t *testing.T) {
	k, ok := token.Keywords["continue"]
	require.True(t, ok)
	assert.Equal(t, token.CONTINUE, k)

	_, ok = token.Keywords["notakeyword"]
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "identifier", token.IDENT.String())
	assert.Equal(t, "unknown", token.Kind(200).String())
}

func TestTokenString(t *testing.T) {
	tok := token.Token{Kind: token.STRING, Lexeme: "hi", Line: 1}
	assert.Equal(t, `"hi"`, tok.String())

	tok = token.Token{Kind: token.PLUS, Lexeme: "+", Line: 1}
	assert.Equal(t, "+", tok.String())
}
