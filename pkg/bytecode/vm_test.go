package bytecode

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// build assembles a chunk from opcodes and constants. A Value argument
// emits OpConstant for it; an Opcode argument emits the opcode.
func build(t *testing.T, items ...any) *Chunk {
	t.Helper()
	c := NewChunk()
	for _, item := range items {
		switch v := item.(type) {
		case Value:
			require.NoError(t, c.WriteConstant(v, 1))
		case Opcode:
			c.WriteOp(v, 1)
		default:
			t.Fatalf("build: unsupported item %T", item)
		}
	}
	return c
}

func TestVMArithmetic(t *testing.T) {
	tests := []struct {
		name  string
		items []any
		want  Value
	}{
		{"constant", []any{Value(3.4), OpReturn}, 3.4},
		{"add", []any{Value(1), Value(2), OpAdd, OpReturn}, 3},
		{"subtract order", []any{Value(5), Value(3), OpSubtract, OpReturn}, 2},
		{"multiply", []any{Value(4), Value(2.5), OpMultiply, OpReturn}, 10},
		{"divide order", []any{Value(8), Value(2), OpDivide, OpReturn}, 4},
		{"negate", []any{Value(4), OpNegate, OpReturn}, -4},
		{"double negate", []any{Value(4), OpNegate, OpNegate, OpReturn}, 4},
		{
			"nested",
			// (-1 + 2) * 3 - -4
			[]any{Value(1), OpNegate, Value(2), OpAdd, Value(3), OpMultiply, Value(4), OpNegate, OpSubtract, OpReturn},
			7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVM().Run(build(t, tt.items...))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestVMDivideByZero(t *testing.T) {
	got, err := NewVM().Run(build(t, Value(1), Value(0), OpDivide, OpReturn))
	require.NoError(t, err)
	require.True(t, math.IsInf(float64(got), 1), "1/0 = %v", got)
}

func TestVMNegateEmptyStack(t *testing.T) {
	got, err := NewVM().Run(build(t, OpNegate, Value(2), OpReturn))
	require.NoError(t, err)
	require.Equal(t, Value(2), got)
}

func TestVMRuntimeErrors(t *testing.T) {
	tests := []struct {
		name  string
		chunk func() *Chunk
		want  error
	}{
		{"binary on empty stack", func() *Chunk { return build(t, OpAdd, OpReturn) }, ErrStackUnderflow},
		{"binary with one operand", func() *Chunk { return build(t, Value(1), OpMultiply, OpReturn) }, ErrStackUnderflow},
		{"return on empty stack", func() *Chunk { return build(t, OpReturn) }, ErrEmptyReturn},
		{"no return", func() *Chunk { return build(t, Value(1)) }, ErrNoReturn},
		{"unknown opcode", func() *Chunk { return build(t, Opcode(0xEE)) }, ErrUnknownOpcode},
		{"constant out of range", func() *Chunk {
			c := NewChunk()
			c.WriteOp(OpConstant, 3)
			c.Write(4, 3)
			c.WriteOp(OpReturn, 3)
			return c
		}, ErrBadOperand},
		{"constant missing operand", func() *Chunk {
			c := NewChunk()
			c.WriteOp(OpConstant, 1)
			return c
		}, ErrBadOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVM().Run(tt.chunk())
			require.ErrorIs(t, err, tt.want)
			var rerr *RuntimeError
			require.ErrorAs(t, err, &rerr)
			require.Equal(t, InterpretRuntimeError, ResultOf(err))
		})
	}
}

func TestRuntimeErrorReportsLine(t *testing.T) {
	c := NewChunk()
	c.WriteConstant(1, 1)
	c.WriteOp(OpAdd, 4)
	c.WriteOp(OpReturn, 4)

	_, err := NewVM().Run(c)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, 4, rerr.Line)
	require.Equal(t, 2, rerr.Offset)
	require.Equal(t, OpAdd, rerr.Op)
	require.Contains(t, rerr.Error(), "[line 4] runtime error:")
}

func TestVMReuse(t *testing.T) {
	vm := NewVM()
	_, err := vm.Run(build(t, Value(1), Value(2), OpReturn))
	require.NoError(t, err)

	// The leftover 1.0 from the first run must not satisfy this ADD.
	_, err = vm.Run(build(t, Value(5), OpAdd, OpReturn))
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestVMTracer(t *testing.T) {
	vm := NewVM()
	var offsets, depths []int
	vm.SetTracer(func(c *Chunk, offset int, stack []Value) {
		offsets = append(offsets, offset)
		depths = append(depths, len(stack))
	})

	_, err := vm.Run(build(t, Value(1), Value(2), OpAdd, OpReturn))
	require.NoError(t, err)

	require.Equal(t, []int{0, 2, 4, 5}, offsets)
	require.Equal(t, []int{0, 1, 2, 1}, depths)
}

func TestWriterTracer(t *testing.T) {
	var buf bytes.Buffer
	vm := NewVM()
	vm.SetTracer(NewWriterTracer(&buf))

	_, err := vm.Run(build(t, Value(1), Value(2), OpAdd, OpReturn))
	require.NoError(t, err)

	out := buf.String()
	for _, want := range []string{"CONSTANT", "ADD", "RETURN", "[ 1.0 ][ 2.0 ]", "[ 3.0 ]"} {
		require.Contains(t, out, want)
	}
}

func TestInterpret(t *testing.T) {
	vm := NewVM()
	vm.UseCompiler(func(source string) (*Chunk, error) {
		return build(t, Value(3), Value(4), OpMultiply, OpReturn), nil
	})

	var out bytes.Buffer
	require.NoError(t, vm.Interpret("3 * 4", &out))
	require.Equal(t, "12.0", out.String())
}

func TestInterpretCompileError(t *testing.T) {
	compileErr := errors.New("Expect expression.")
	vm := NewVM()
	vm.UseCompiler(func(string) (*Chunk, error) { return nil, compileErr })

	var out bytes.Buffer
	err := vm.Interpret("(", &out)
	require.ErrorIs(t, err, compileErr)
	require.Equal(t, InterpretCompileError, ResultOf(err))
	require.Zero(t, out.Len())
}

func TestInterpretWithoutCompiler(t *testing.T) {
	err := NewVM().Interpret("1", &bytes.Buffer{})
	require.ErrorIs(t, err, ErrNoCompiler)
}

func TestResultOfOK(t *testing.T) {
	require.Equal(t, InterpretOK, ResultOf(nil))
}
