package bytecode

import (
	"fmt"
	"io"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("loxvm.vm")

// CompileFunc compiles source text into a chunk. The compiler package
// provides one; it is injected with UseCompiler to avoid an import cycle.
type CompileFunc func(source string) (*Chunk, error)

// TraceFunc observes execution. It is called before every instruction with
// the chunk, the instruction's offset, and a snapshot of the operand stack
// (bottom first).
type TraceFunc func(c *Chunk, offset int, stack []Value)

// NewWriterTracer returns a TraceFunc that writes the disassembled
// instruction followed by the stack contents to w.
func NewWriterTracer(w io.Writer) TraceFunc {
	return func(c *Chunk, offset int, stack []Value) {
		DisassembleInstruction(w, c, offset)
		var sb strings.Builder
		sb.WriteString("          ")
		for _, v := range stack {
			fmt.Fprintf(&sb, "[ %s ]", v)
		}
		sb.WriteByte('\n')
		io.WriteString(w, sb.String())
	}
}

// VM executes bytecode chunks on an operand stack.
// A VM is not safe for concurrent use, but may be reused: every run starts
// from an empty stack.
type VM struct {
	chunk *Chunk  // Chunk being executed, borrowed for the run
	ip    int     // Offset of the next byte to read
	stack []Value // Operand stack

	compile CompileFunc
	trace   TraceFunc
}

// NewVM creates a VM with no compiler and no tracer.
func NewVM() *VM {
	return &VM{
		stack: make([]Value, 0, 256),
	}
}

// UseCompiler installs the function Interpret uses to compile source.
func (vm *VM) UseCompiler(fn CompileFunc) {
	vm.compile = fn
}

// SetTracer installs (or, with nil, removes) the execution observer.
func (vm *VM) SetTracer(fn TraceFunc) {
	vm.trace = fn
}

// Interpret compiles source, runs it on a fresh stack, and writes the
// formatted result to out. Compile errors are returned unchanged; runtime
// faults are returned as *RuntimeError.
func (vm *VM) Interpret(source string, out io.Writer) error {
	if vm.compile == nil {
		return ErrNoCompiler
	}
	chunk, err := vm.compile(source)
	if err != nil {
		return err
	}
	result, err := vm.Run(chunk)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(out, result.String()); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// Run executes chunk from offset 0 until OpReturn and returns the popped value.
func (vm *VM) Run(chunk *Chunk) (Value, error) {
	vm.chunk = chunk
	vm.ip = 0
	vm.stack = vm.stack[:0]
	defer func() { vm.chunk = nil }()

	return vm.run()
}

func (vm *VM) run() (Value, error) {
	for {
		if vm.ip >= len(vm.chunk.Code) {
			return 0, vm.fault(ErrNoReturn, OpReturn, vm.ip)
		}

		offset := vm.ip
		if vm.trace != nil {
			vm.trace(vm.chunk, offset, append([]Value(nil), vm.stack...))
		}

		op := Opcode(vm.chunk.Code[vm.ip])
		vm.ip++

		switch op {
		case OpConstant:
			if vm.ip >= len(vm.chunk.Code) {
				return 0, vm.fault(ErrBadOperand, op, offset)
			}
			idx := int(vm.chunk.Code[vm.ip])
			vm.ip++
			if idx >= len(vm.chunk.Constants) {
				return 0, vm.fault(ErrBadOperand, op, offset)
			}
			vm.push(vm.chunk.Constants[idx])

		case OpNegate:
			// Negating an empty stack does nothing.
			if n := len(vm.stack); n > 0 {
				vm.stack[n-1] = -vm.stack[n-1]
			}

		case OpAdd, OpSubtract, OpMultiply, OpDivide:
			b, ok := vm.pop()
			if !ok {
				return 0, vm.fault(ErrStackUnderflow, op, offset)
			}
			a, ok := vm.pop()
			if !ok {
				return 0, vm.fault(ErrStackUnderflow, op, offset)
			}
			vm.push(binaryOp(op, a, b))

		case OpReturn:
			result, ok := vm.pop()
			if !ok {
				return 0, vm.fault(ErrEmptyReturn, op, offset)
			}
			return result, nil

		default:
			return 0, vm.fault(ErrUnknownOpcode, op, offset)
		}
	}
}

func binaryOp(op Opcode, a, b Value) Value {
	switch op {
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	default:
		return a / b
	}
}

func (vm *VM) fault(err error, op Opcode, offset int) *RuntimeError {
	rerr := &RuntimeError{
		Err:    err,
		Op:     op,
		Offset: offset,
		Line:   vm.chunk.LineAt(offset),
	}
	log.Debugf("%s", rerr)
	return rerr
}

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (Value, bool) {
	n := len(vm.stack)
	if n == 0 {
		return 0, false
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, true
}
