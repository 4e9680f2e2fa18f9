// Package chunk implements the bytecode container: a byte-addressable
// instruction stream, a constant pool, and a run-length line table.
package chunk

import (
	"fmt"
	"strings"

	"github.com/loxscript/loxvm/lang/value"
)

// OpCode is a single bytecode instruction's opcode byte.
type OpCode byte

//nolint:revive
const (
	OpConstant     OpCode = iota // u8 constant index
	OpConstantLong               // u24 little-endian constant index
	OpNil
	OpTrue
	OpFalse

	OpNegate
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpEqual
	OpGreater
	OpLess

	OpPop
	OpPrint
	OpReturn

	OpDefineGlobal // u8 name constant
	OpGetGlobal    // u8 name constant
	OpSetGlobal    // u8 name constant
	OpGetLocal     // u8 slot
	OpSetLocal     // u8 slot
	OpGetUpvalue   // u8 index
	OpSetUpvalue   // u8 index

	OpJump        // i16
	OpJumpIfFalse // i16
	OpLoop        // u16
	OpCase        // i16
	OpCall        // u8 argc
	OpClosure     // u8 fn-const, then per-upvalue {isLocal u8, index u8}
	OpCloseUpvalue

	// Classes, instances, and bound methods.
	OpClass        // u8 name constant
	OpMethod       // u8 name constant
	OpGetProperty  // u8 name constant
	OpSetProperty  // u8 name constant
	OpInherit
	OpGetSuper     // u8 name constant
	OpInvoke       // u8 name constant, u8 argc
	OpSuperInvoke  // u8 name constant, u8 argc
)

var opNames = [...]string{
	OpConstant: "OP_CONSTANT", OpConstantLong: "OP_CONSTANT_LONG", OpNil: "OP_NIL",
	OpTrue: "OP_TRUE", OpFalse: "OP_FALSE", OpNegate: "OP_NEGATE", OpNot: "OP_NOT",
	OpAdd: "OP_ADD", OpSubtract: "OP_SUBTRACT", OpMultiply: "OP_MULTIPLY", OpDivide: "OP_DIVIDE",
	OpEqual: "OP_EQUAL", OpGreater: "OP_GREATER", OpLess: "OP_LESS",
	OpPop: "OP_POP", OpPrint: "OP_PRINT", OpReturn: "OP_RETURN",
	OpDefineGlobal: "OP_DEFINE_GLOBAL", OpGetGlobal: "OP_GET_GLOBAL", OpSetGlobal: "OP_SET_GLOBAL",
	OpGetLocal: "OP_GET_LOCAL", OpSetLocal: "OP_SET_LOCAL",
	OpGetUpvalue: "OP_GET_UPVALUE", OpSetUpvalue: "OP_SET_UPVALUE",
	OpJump: "OP_JUMP", OpJumpIfFalse: "OP_JUMP_IF_FALSE", OpLoop: "OP_LOOP", OpCase: "OP_CASE",
	OpCall: "OP_CALL", OpClosure: "OP_CLOSURE", OpCloseUpvalue: "OP_CLOSE_UPVALUE",
	OpClass: "OP_CLASS", OpMethod: "OP_METHOD", OpGetProperty: "OP_GET_PROPERTY",
	OpSetProperty: "OP_SET_PROPERTY", OpInherit: "OP_INHERIT", OpGetSuper: "OP_GET_SUPER",
	OpInvoke: "OP_INVOKE", OpSuperInvoke: "OP_SUPER_INVOKE",
}

func (op OpCode) String() string {
	if int(op) >= len(opNames) || opNames[op] == "" {
		return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
	}
	return opNames[op]
}

// lineRun is one run-length record of the line table: the line number for
// every instruction offset >= FirstOffset, until the next record's
// FirstOffset.
type lineRun struct {
	firstOffset int
	line        int
}

// Chunk is a compiled unit: bytecode, its constant pool, and a line table
//.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	lines     []lineRun
}

// New returns an empty Chunk.
func New() *Chunk { return &Chunk{} }

// Write appends one byte of code, recording line if it differs from the last
// recorded line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if n := len(c.lines); n == 0 || c.lines[n-1].line != line {
		c.lines = append(c.lines, lineRun{firstOffset: len(c.Code) - 1, line: line})
	}
}

// LineFor returns the source line of the instruction at offset: the line of
// the last record with FirstOffset <= offset.
func (c *Chunk) LineFor(offset int) int {
	lo, hi := 0, len(c.lines)-1
	line := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if c.lines[mid].firstOffset <= offset {
			line = c.lines[mid].line
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return line
}

// AddConstant appends v to the constant pool and returns its index.
//
// clox's addConstant pushes the value onto the VM stack around the
// underlying array append, so that a GC triggered mid-growth cannot collect
// it. Here, pushing a Chunk's own append onto a VM stack makes no sense (a
// Chunk is compiled before any VM frame for it exists) -- Go's slice growth
// is handled by the Go runtime's allocator, which is entirely independent
// from lang/heap's mark-sweep collector over Objects, so it cannot trigger
// our GC at all. The equivalent hazard here is the *value itself* being
// unreachable while it is being interned, which lang/heap's compiler-root
// provider addresses instead (see lang/heap.Heap.AddRootProvider and
// lang/compiler's use of it).
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// TraceConstants implements value.FunctionChunk, letting a Function mark
// every object its constant pool references during GC tracing.
func (c *Chunk) TraceConstants(mark func(value.Value)) {
	for _, v := range c.Constants {
		mark(v)
	}
}

// Disassemble renders the chunk as human-readable text, for debugging and
// tests only.
func (c *Chunk) Disassemble(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.disassembleInstruction(&b, offset)
	}
	return b.String()
}

func (c *Chunk) disassembleInstruction(b *strings.Builder, offset int) int {
	fmt.Fprintf(b, "%04d %4d ", offset, c.LineFor(offset))
	op := OpCode(c.Code[offset])
	switch op {
	case OpConstant:
		idx := c.Code[offset+1]
		fmt.Fprintf(b, "%-18s %4d '%v'\n", op, idx, c.Constants[idx])
		return offset + 2
	case OpConstantLong:
		idx := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])<<16
		fmt.Fprintf(b, "%-18s %4d '%v'\n", op, idx, c.Constants[idx])
		return offset + 4
	case OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue, OpCall,
		OpDefineGlobal, OpGetGlobal, OpSetGlobal, OpClass, OpMethod,
		OpGetProperty, OpSetProperty, OpGetSuper:
		fmt.Fprintf(b, "%-18s %4d\n", op, c.Code[offset+1])
		return offset + 2
	case OpInvoke, OpSuperInvoke:
		fmt.Fprintf(b, "%-18s %4d (%d args)\n", op, c.Code[offset+1], c.Code[offset+2])
		return offset + 3
	case OpJump, OpJumpIfFalse, OpCase:
		jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		fmt.Fprintf(b, "%-18s %4d -> %d\n", op, offset, offset+3+jump)
		return offset + 3
	case OpLoop:
		jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		fmt.Fprintf(b, "%-18s %4d -> %d\n", op, offset, offset+3-jump)
		return offset + 3
	case OpClosure:
		idx := c.Code[offset+1]
		fmt.Fprintf(b, "%-18s %4d '%v'\n", op, idx, c.Constants[idx])
		// The per-upvalue {isLocal, index} pairs that follow are not decoded:
		// decoding resumes right after the constant index, so those pairs are
		// rendered as if they were instructions.
		return offset + 2
	default:
		fmt.Fprintf(b, "%s\n", op)
		return offset + 1
	}
}
