package compiler

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Single-character tokens
	TokenLeftParen  TokenType = iota // (
	TokenRightParen                  // )
	TokenLeftBrace                   // {
	TokenRightBrace                  // }
	TokenComma                       // ,
	TokenDot                         // .
	TokenMinus                       // -
	TokenPlus                        // +
	TokenSemicolon                   // ;
	TokenSlash                       // /
	TokenStar                        // *

	// One or two character tokens
	TokenBang         // !
	TokenBangEqual    // !=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=

	// Literals
	TokenIdentifier
	TokenString
	TokenNumber

	// Keywords
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFor
	TokenFun
	TokenIf
	TokenNil
	TokenOr
	TokenPrint
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenVar
	TokenWhile

	// Special tokens
	TokenError
	TokenEOF

	tokenTypeCount
)

var tokenNames = [tokenTypeCount]string{
	TokenLeftParen:    "LEFT_PAREN",
	TokenRightParen:   "RIGHT_PAREN",
	TokenLeftBrace:    "LEFT_BRACE",
	TokenRightBrace:   "RIGHT_BRACE",
	TokenComma:        "COMMA",
	TokenDot:          "DOT",
	TokenMinus:        "MINUS",
	TokenPlus:         "PLUS",
	TokenSemicolon:    "SEMICOLON",
	TokenSlash:        "SLASH",
	TokenStar:         "STAR",
	TokenBang:         "BANG",
	TokenBangEqual:    "BANG_EQUAL",
	TokenEqual:        "EQUAL",
	TokenEqualEqual:   "EQUAL_EQUAL",
	TokenGreater:      "GREATER",
	TokenGreaterEqual: "GREATER_EQUAL",
	TokenLess:         "LESS",
	TokenLessEqual:    "LESS_EQUAL",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenAnd:          "AND",
	TokenClass:        "CLASS",
	TokenElse:         "ELSE",
	TokenFalse:        "FALSE",
	TokenFor:          "FOR",
	TokenFun:          "FUN",
	TokenIf:           "IF",
	TokenNil:          "NIL",
	TokenOr:           "OR",
	TokenPrint:        "PRINT",
	TokenReturn:       "RETURN",
	TokenSuper:        "SUPER",
	TokenThis:         "THIS",
	TokenTrue:         "TRUE",
	TokenVar:          "VAR",
	TokenWhile:        "WHILE",
	TokenError:        "ERROR",
	TokenEOF:          "EOF",
}

func (t TokenType) String() string {
	if t >= 0 && t < tokenTypeCount {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenAnd && t <= TokenWhile
}

// Token is a lexical token. Lexeme is the exact source text of the token,
// except for TokenError where it holds the error message.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) line %d", t.Type, t.Lexeme, t.Line)
}

var keywords = map[string]TokenType{
	"and":    TokenAnd,
	"class":  TokenClass,
	"else":   TokenElse,
	"false":  TokenFalse,
	"for":    TokenFor,
	"fun":    TokenFun,
	"if":     TokenIf,
	"nil":    TokenNil,
	"or":     TokenOr,
	"print":  TokenPrint,
	"return": TokenReturn,
	"super":  TokenSuper,
	"this":   TokenThis,
	"true":   TokenTrue,
	"var":    TokenVar,
	"while":  TokenWhile,
}

// LookupIdent returns the keyword type for ident, or TokenIdentifier.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}

// Keywords returns the reserved words in alphabetical order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for t := TokenAnd; t <= TokenWhile; t++ {
		words = append(words, strings.ToLower(t.String()))
	}
	return words
}
