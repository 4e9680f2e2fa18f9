package scanner_test

import (
	"testing"

	"github.com/loxscript/loxvm/lang/scanner"
	"github.com/loxscript/loxvm/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var s scanner.Scanner
	s.Init(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "( ) { } , . - + ; / * ! != = == < <= > >= :")
	kinds := make([]token.Kind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA, token.DOT,
		token.MINUS, token.PLUS, token.SEMI, token.SLASH, token.STAR, token.BANG,
		token.BANG_EQ, token.EQ, token.EQ_EQ, token.LT, token.LE, token.GT, token.GE,
		token.COLON, token.EOF,
	}, kinds)
}

func TestScanNumbersAndIdentsAndKeywords(t *testing.T) {
	toks := scanAll(t, "var x = 1.5; continue;")
	require.Len(t, toks, 8)
	assert.Equal(t, token.VAR, toks[0].Kind)
	assert.Equal(t, token.IDENT, toks[1].Kind)
	assert.Equal(t, "x", toks[1].Lexeme)
	assert.Equal(t, token.EQ, toks[2].Kind)
	assert.Equal(t, token.NUMBER, toks[3].Kind)
	assert.Equal(t, "1.5", toks[3].Lexeme)
	assert.Equal(t, token.SEMI, toks[4].Kind)
	assert.Equal(t, token.CONTINUE, toks[5].Kind)
}

func TestScanString(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "hello world", toks[0].Lexeme)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"hello`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Kind)
	assert.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestScanLineComment(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n2")
	require.Len(t, toks, 3)
	assert.Equal(t, "1", toks[0].Lexeme)
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, "2", toks[1].Lexeme)
	assert.Equal(t, 2, toks[1].Line)
}

func TestScanUnexpectedCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	require.Len(t, toks, 2)
	assert.Equal(t, token.ILLEGAL, toks[0].Kind)
}
