// Package compiler turns expression source text into bytecode chunks.
//
// Scanning is lazy: the Scanner hands out one token per call and the
// Compiler, a single-pass Pratt parser, emits instructions into the chunk
// as it goes. There is no syntax tree.
//
// The scanner knows the whole token vocabulary (keywords, strings,
// comparison operators) but only numbers, parentheses, unary minus, and the
// four arithmetic operators compile. Anything else is reported as
// "Expect expression." or a similar diagnostic.
package compiler
