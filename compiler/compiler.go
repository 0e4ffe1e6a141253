package compiler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chazu/loxvm/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Compiler: single-pass Pratt parser emitting bytecode
// ---------------------------------------------------------------------------

// Precedence orders binding strength, weakest first.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// ruleFor returns the parse rule for a token type. Types without a rule
// have neither handler and PrecNone, which ends any infix loop.
func ruleFor(t TokenType) parseRule {
	switch t {
	case TokenLeftParen:
		return parseRule{prefix: (*Compiler).grouping}
	case TokenMinus:
		return parseRule{prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm}
	case TokenPlus:
		return parseRule{infix: (*Compiler).binary, precedence: PrecTerm}
	case TokenSlash, TokenStar:
		return parseRule{infix: (*Compiler).binary, precedence: PrecFactor}
	case TokenNumber:
		return parseRule{prefix: (*Compiler).number}
	default:
		return parseRule{}
	}
}

// Compiler holds the state of one compilation. It is not reusable.
type Compiler struct {
	scanner  *Scanner
	chunk    *bytecode.Chunk
	previous Token
	current  Token

	hadError  bool
	panicMode bool
	diags     []Diagnostic
}

// NewCompiler creates a compiler for source.
func NewCompiler(source string) *Compiler {
	return &Compiler{
		scanner: NewScanner(source),
		chunk:   bytecode.NewChunk(),
	}
}

// Compile compiles a single expression into a chunk ending in OpReturn.
// On failure it returns a *CompileError and no chunk.
func Compile(source string) (*bytecode.Chunk, error) {
	return NewCompiler(source).Compile()
}

// Compile runs the compiler. See the package-level Compile.
func (c *Compiler) Compile() (*bytecode.Chunk, error) {
	c.advance()
	c.expression()
	c.consume(TokenEOF, "Expect end of expression.")
	c.emitOp(bytecode.OpReturn)

	if c.hadError {
		return nil, &CompileError{Diagnostics: c.diags}
	}
	return c.chunk, nil
}

// Diagnostics returns the errors reported so far.
func (c *Compiler) Diagnostics() []Diagnostic {
	return c.diags
}

// ---------------------------------------------------------------------------
// Token stream
// ---------------------------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.NextToken()
		if c.current.Type != TokenError {
			return
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) consume(t TokenType, message string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Type).prefix
	if prefix == nil {
		c.errorAt(c.previous, "Expect expression.")
		return
	}
	prefix(c)

	for prec <= ruleFor(c.current.Type).precedence {
		c.advance()
		ruleFor(c.previous.Type).infix(c)
	}
}

func (c *Compiler) number() {
	// Literals beyond float64 range become ±Inf with ErrRange.
	value, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		c.errorAt(c.previous, fmt.Sprintf("Invalid number literal: %v", err))
		return
	}
	c.emitConstant(bytecode.Value(value))
}

func (c *Compiler) grouping() {
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary() {
	op := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch op {
	case TokenMinus:
		c.emitOp(bytecode.OpNegate)
	}
}

func (c *Compiler) binary() {
	op := c.previous.Type
	// One level tighter on the right makes operators left-associative.
	c.parsePrecedence(ruleFor(op).precedence + 1)

	switch op {
	case TokenPlus:
		c.emitOp(bytecode.OpAdd)
	case TokenMinus:
		c.emitOp(bytecode.OpSubtract)
	case TokenStar:
		c.emitOp(bytecode.OpMultiply)
	case TokenSlash:
		c.emitOp(bytecode.OpDivide)
	}
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op bytecode.Opcode) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitConstant(v bytecode.Value) {
	idx := c.makeConstant(v)
	c.emitOp(bytecode.OpConstant)
	c.emitByte(idx)
}

func (c *Compiler) makeConstant(v bytecode.Value) byte {
	idx := c.chunk.AddConstant(v)
	if idx >= bytecode.MaxConstants {
		c.errorAt(c.previous, "Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

func (c *Compiler) errorAt(tok Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	d := Diagnostic{Line: tok.Line, Message: message}
	switch tok.Type {
	case TokenEOF:
		d.Where = " at end"
	case TokenError:
	default:
		d.Where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.diags = append(c.diags, d)
}
