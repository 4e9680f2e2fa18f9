// Package scanner implements the lexer for the language: it turns a source
// buffer into a stream of lang/token.Token values. This is the minimal
// external interface specified for the lexer: Init followed by
// repeated calls to Scan, terminated by a token.EOF. Lexical errors surface
// as a token.ILLEGAL token whose Lexeme is the error message.
package scanner

import "github.com/loxscript/loxvm/lang/token"

// A Scanner tokenizes a single source buffer.
type Scanner struct {
	src     string
	start   int // start of the current lexeme
	current int // next byte to read
	line    int
}

// Init prepares s to scan source. It may be reused by calling Init again.
func (s *Scanner) Init(source string) {
	s.src = source
	s.start = 0
	s.current = 0
	s.line = 1
}

// Scan returns the next token in the source. Once it returns a token.EOF
// token, every subsequent call also returns token.EOF.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespaceAndComments()
	s.start = s.current

	if s.atEnd() {
		return s.make(token.EOF)
	}

	c := s.advance()
	if isAlpha(c) {
		return s.identifier()
	}
	if isDigit(c) {
		return s.number()
	}

	switch c {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case ';':
		return s.make(token.SEMI)
	case ':':
		return s.make(token.COLON)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case '/':
		return s.make(token.SLASH)
	case '*':
		return s.make(token.STAR)
	case '!':
		if s.matchByte('=') {
			return s.make(token.BANG_EQ)
		}
		return s.make(token.BANG)
	case '=':
		if s.matchByte('=') {
			return s.make(token.EQ_EQ)
		}
		return s.make(token.EQ)
	case '<':
		if s.matchByte('=') {
			return s.make(token.LE)
		}
		return s.make(token.LT)
	case '>':
		if s.matchByte('=') {
			return s.make(token.GE)
		}
		return s.make(token.GT)
	case '"':
		return s.string()
	}

	return s.errorf("Unexpected character.")
}

func (s *Scanner) atEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	c := s.src[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.src[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

func (s *Scanner) matchByte(want byte) bool {
	if s.atEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.current++
		case '\n':
			s.line++
			s.current++
		case '/':
			if s.peekNext() == '/' {
				for s.peek() != '\n' && !s.atEnd() {
					s.current++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (s *Scanner) string() token.Token {
	for s.peek() != '"' && !s.atEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.current++
	}
	if s.atEnd() {
		return s.errorf("Unterminated string.")
	}
	s.current++ // closing quote
	t := s.make(token.STRING)
	t.Lexeme = s.src[s.start+1 : s.current-1]
	return t
}

func (s *Scanner) number() token.Token {
	for isDigit(s.peek()) {
		s.current++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.current++ // consume '.'
		for isDigit(s.peek()) {
			s.current++
		}
	}
	return s.make(token.NUMBER)
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.current++
	}
	lexeme := s.src[s.start:s.current]
	if kind, ok := token.Keywords[lexeme]; ok {
		return s.make(kind)
	}
	return s.make(token.IDENT)
}

func (s *Scanner) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Lexeme: s.src[s.start:s.current], Line: s.line}
}

func (s *Scanner) errorf(msg string) token.Token {
	return token.Token{Kind: token.ILLEGAL, Lexeme: msg, Line: s.line}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
