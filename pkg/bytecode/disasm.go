package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a human-readable listing of the chunk under a
// "== name ==" header.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	DisassembleChunk(&sb, c, name)
	return sb.String()
}

// DisassembleChunk writes a listing of every instruction in c to w.
func DisassembleChunk(w io.Writer, c *Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction writes the instruction at offset to w and returns
// the offset of the next instruction.
//
// Each line is the zero-padded offset, the source line (or "   |" when it
// matches the previous byte's line), and the mnemonic. OpConstant also
// shows its pool index and value.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.LineAt(offset))
	}

	op := Opcode(c.Code[offset])
	switch op {
	case OpConstant:
		return constantInstruction(w, c, op, offset)
	default:
		fmt.Fprintln(w, op.String())
		return offset + 1
	}
}

func constantInstruction(w io.Writer, c *Chunk, op Opcode, offset int) int {
	if offset+1 >= len(c.Code) {
		fmt.Fprintf(w, "%-16s <missing operand>\n", op.String())
		return offset + 2
	}
	idx := int(c.Code[offset+1])
	if idx >= len(c.Constants) {
		fmt.Fprintf(w, "%-16s %4d <out of range>\n", op.String(), idx)
		return offset + 2
	}
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op.String(), idx, c.Constants[idx])
	return offset + 2
}
