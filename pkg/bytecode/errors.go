package bytecode

import (
	"errors"
	"fmt"
)

// Runtime faults. A *RuntimeError returned by the VM unwraps to one of these.
var (
	ErrStackUnderflow = errors.New("vm: missing operand")
	ErrEmptyReturn    = errors.New("vm: return with empty stack")
	ErrBadOperand     = errors.New("vm: constant operand out of range")
	ErrUnknownOpcode  = errors.New("vm: unknown opcode")
	ErrNoReturn       = errors.New("vm: ran off end of chunk")
	ErrNoCompiler     = errors.New("vm: no compiler installed")
)

// RuntimeError describes a fault raised while executing a chunk.
type RuntimeError struct {
	Err    error  // one of the Err* sentinels
	Op     Opcode // instruction that faulted
	Offset int    // offset of that instruction
	Line   int    // source line of that instruction
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] runtime error: %v (%s at offset %d)", e.Line, e.Err, e.Op, e.Offset)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// InterpretResult classifies the outcome of VM.Interpret.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "ok"
	case InterpretCompileError:
		return "compile_error"
	case InterpretRuntimeError:
		return "runtime_error"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// ResultOf classifies an error returned by Interpret or Run. Any error that
// is not a *RuntimeError came from compilation.
func ResultOf(err error) InterpretResult {
	if err == nil {
		return InterpretOK
	}
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return InterpretRuntimeError
	}
	return InterpretCompileError
}
