package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are grouped into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConstant Opcode = 0x10 // Push constant from pool: OpConstant <index:u8>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd      Opcode = 0x50 // Pop two, push sum
	OpSubtract Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x52 // Pop two, push product
	OpDivide   Opcode = 0x53 // Pop two, push quotient (a / b where b is TOS)
	OpNegate   Opcode = 0x55 // Negate top of stack

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn Opcode = 0xF0 // Pop and return top of stack
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic used by the disassembler
	StackPop   int    // How many values popped from stack
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 0, 1, 1},

	OpAdd:      {"ADD", 2, 1, 0},
	OpSubtract: {"SUBTRACT", 2, 1, 0},
	OpMultiply: {"MULTIPLY", 2, 1, 0},
	OpDivide:   {"DIVIDE", 2, 1, 0},
	OpNegate:   {"NEGATE", 1, 1, 0},

	OpReturn: {"RETURN", 1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(0xNN)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsKnown reports whether op is a defined opcode.
func (op Opcode) IsKnown() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsBinary reports whether op pops two operands and pushes one result.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpDivide
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
