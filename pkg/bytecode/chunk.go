package bytecode

import (
	"errors"
	"fmt"
)

// MaxConstants is the largest constant pool a chunk can address; constant
// operands are a single unsigned byte.
const MaxConstants = 256

// Chunk is a compiled unit of bytecode: the instruction stream, the source
// line of every byte in it, and the constant pool.
//
// Lines is parallel to Code, including operand bytes, so the line of any
// offset can be looked up directly.
type Chunk struct {
	Code      []byte  `cbor:"1,keyasint"`
	Lines     []int   `cbor:"2,keyasint"`
	Constants []Value `cbor:"3,keyasint"`
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 16),
		Lines:     make([]int, 0, 16),
		Constants: make([]Value, 0, 4),
	}
}

// Write appends a raw byte to the code, recording the source line it came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteConstant adds v to the pool and emits OpConstant with its index.
// It returns an error, leaving the chunk unchanged, if the pool is full.
func (c *Chunk) WriteConstant(v Value, line int) error {
	if len(c.Constants) >= MaxConstants {
		return ErrTooManyConstants
	}
	idx := c.AddConstant(v)
	c.WriteOp(OpConstant, line)
	c.Write(byte(idx), line)
	return nil
}

// AddConstant appends v to the constant pool and returns its index.
// Duplicates are not merged.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// CodeLen returns the number of bytes in the instruction stream.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// LineAt returns the source line recorded for offset, or 0 if the offset is
// out of range.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// ErrTooManyConstants is returned when a chunk's constant pool is full.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// ErrInvalidChunk is wrapped by every Validate failure.
var ErrInvalidChunk = errors.New("invalid chunk")

// Validate checks the structural invariants of a chunk: the line table is
// parallel to the code, every instruction is known and complete, every
// constant operand addresses the pool, and the code ends with OpReturn.
func (c *Chunk) Validate() error {
	if len(c.Lines) != len(c.Code) {
		return fmt.Errorf("%w: %d lines for %d code bytes", ErrInvalidChunk, len(c.Lines), len(c.Code))
	}
	if len(c.Constants) > MaxConstants {
		return fmt.Errorf("%w: %d constants exceed limit of %d", ErrInvalidChunk, len(c.Constants), MaxConstants)
	}
	if len(c.Code) == 0 {
		return fmt.Errorf("%w: empty code", ErrInvalidChunk)
	}

	last := Opcode(0)
	for offset := 0; offset < len(c.Code); {
		op := Opcode(c.Code[offset])
		if !op.IsKnown() {
			return fmt.Errorf("%w: unknown opcode 0x%02X at offset %d", ErrInvalidChunk, byte(op), offset)
		}
		if offset+op.InstructionLen() > len(c.Code) {
			return fmt.Errorf("%w: truncated %s at offset %d", ErrInvalidChunk, op, offset)
		}
		if op == OpConstant {
			idx := int(c.Code[offset+1])
			if idx >= len(c.Constants) {
				return fmt.Errorf("%w: constant index %d out of range at offset %d", ErrInvalidChunk, idx, offset)
			}
		}
		last = op
		offset += op.InstructionLen()
	}

	if last != OpReturn {
		return fmt.Errorf("%w: code does not end with %s", ErrInvalidChunk, OpReturn)
	}
	return nil
}
