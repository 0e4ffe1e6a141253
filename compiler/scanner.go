package compiler

import "unicode/utf8"

// ---------------------------------------------------------------------------
// Scanner: lazy tokenizer
// ---------------------------------------------------------------------------

// Scanner produces tokens from source text on demand. It keeps no token
// buffer: each call to NextToken scans exactly one token.
type Scanner struct {
	source  string
	start   int // offset of the first byte of the token being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)
	done    bool
}

// NewScanner creates a scanner positioned at the start of source.
func NewScanner(source string) *Scanner {
	return &Scanner{source: source, line: 1}
}

// Next returns the next token, or ok == false once the input is exhausted.
// After an unterminated string the scanner reports exhaustion.
func (s *Scanner) Next() (tok Token, ok bool) {
	if s.done {
		return Token{}, false
	}
	tok = s.NextToken()
	if tok.Type == TokenEOF {
		s.done = true
		return Token{}, false
	}
	return tok, true
}

// NextToken returns the next token. Once input is exhausted it returns a
// TokenEOF on every call.
func (s *Scanner) NextToken() Token {
	if s.done {
		return s.makeEOF()
	}

	s.skipWhitespace()
	s.start = s.current
	if s.isAtEnd() {
		return s.makeEOF()
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case ';':
		return s.makeToken(TokenSemicolon)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)
	case '!':
		return s.makeToken(s.pick('=', TokenBangEqual, TokenBang))
	case '=':
		return s.makeToken(s.pick('=', TokenEqualEqual, TokenEqual))
	case '>':
		return s.makeToken(s.pick('=', TokenGreaterEqual, TokenGreater))
	case '<':
		return s.makeToken(s.pick('=', TokenLessEqual, TokenLess))
	case '"':
		return s.scanString()
	}

	// Consume the rest of a multi-byte character so it yields one error.
	s.current = s.start
	_, size := utf8.DecodeRuneInString(s.source[s.current:])
	s.current += size
	return s.errorToken("unexpected character")
}

// Tokenize scans all of source and returns its tokens, excluding EOF.
func Tokenize(source string) []Token {
	s := NewScanner(source)
	var tokens []Token
	for {
		tok, ok := s.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

// pick consumes expected and returns two if it is next, otherwise one.
func (s *Scanner) pick(expected byte, two, one TokenType) TokenType {
	if s.isAtEnd() || s.source[s.current] != expected {
		return one
	}
	s.current++
	return two
}

func (s *Scanner) skipWhitespace() {
	for !s.isAtEnd() {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.current++
		case '\n':
			s.line++
			s.current++
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for !s.isAtEnd() && s.peek() != '\n' {
				s.current++
			}
		default:
			return
		}
	}
}

func (s *Scanner) scanString() Token {
	for !s.isAtEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.current++
	}

	if s.isAtEnd() {
		s.done = true
		return s.errorToken("Unterminated String")
	}

	s.current++ // closing quote
	return s.makeToken(TokenString)
}

func (s *Scanner) number() Token {
	for isDigit(s.peek()) {
		s.current++
	}

	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.current++ // the dot
		for isDigit(s.peek()) {
			s.current++
		}
	}

	return s.makeToken(TokenNumber)
}

func (s *Scanner) identifier() Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.current++
	}
	return s.makeToken(LookupIdent(s.source[s.start:s.current]))
}

func (s *Scanner) makeToken(t TokenType) Token {
	return Token{Type: t, Lexeme: s.source[s.start:s.current], Line: s.line}
}

func (s *Scanner) makeEOF() Token {
	return Token{Type: TokenEOF, Line: s.line}
}

func (s *Scanner) errorToken(message string) Token {
	return Token{Type: TokenError, Lexeme: message, Line: s.line}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
