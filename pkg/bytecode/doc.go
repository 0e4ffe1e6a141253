// Package bytecode provides the chunk format, disassembler, and stack-based
// virtual machine for loxvm arithmetic expressions.
//
// # Architecture Overview
//
//   - Opcodes: a handful of single-byte instructions. OpConstant is followed
//     by a one-byte index into the constant pool; every other opcode stands
//     alone.
//
//   - Chunk: the instruction stream, a parallel table giving the source line
//     of every byte (operands included), and a pool of float64 constants.
//     A chunk addresses at most MaxConstants constants.
//
//   - VM: fetches, decodes, and executes a chunk until OpReturn. Binary
//     operators pop the right operand first, so "a - b" computes a minus b.
//     Faults such as a missing operand are returned as *RuntimeError values.
//
//   - Disassembler: renders chunks one instruction per line. The same
//     routine backs static dumps and the optional execution trace.
//
// The VM does not import a compiler. Source is compiled through a
// CompileFunc installed with UseCompiler:
//
//	vm := bytecode.NewVM()
//	vm.UseCompiler(compiler.Compile)
//	err := vm.Interpret("(-1 + 2) * 3 - -4", os.Stdout) // prints 7.0
//
// Chunks are tagged for CBOR encoding; see package image for the on-disk
// format.
package bytecode
