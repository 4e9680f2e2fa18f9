// Package compiler implements a one-pass Pratt compiler: a single
// recursive-descent/precedence-climbing pass from a token stream straight
// to bytecode, with no intermediate AST.
package compiler

import (
	"errors"
	"fmt"

	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/heap"
	"github.com/loxscript/loxvm/lang/scanner"
	"github.com/loxscript/loxvm/lang/token"
	"github.com/loxscript/loxvm/lang/value"
)

// funcType distinguishes the handful of compiled-function shapes that need
// different slot-0/return conventions: plain functions, methods, and
// initializers each treat the implicit receiver and return value
// differently.
type funcType int

const (
	typeScript funcType = iota
	typeFunction
	typeMethod
	typeInitializer
)

// local is one entry of a function's local-variable array. depth == -1
// marks an uninitialized local, the state between declaring a name and
// finishing its initializer expression.
type local struct {
	name       string
	depth      int
	isConst    bool
	isCaptured bool
}

// upvalueRef records how a compiled function captures one variable from an
// enclosing function.
type upvalueRef struct {
	index   uint8
	isLocal bool
}

// loopState threads continue targets across nested loops.
type loopState struct {
	enclosing  *loopState
	loopStart  int
	scopeDepth int
}

// classState tracks whether the class currently being compiled has a
// superclass, so `super` expressions can be validated.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// fnState is the per-function compiler state, one per nested fun/method/
// script body; it is the compile-time counterpart of a runtime call frame.
type fnState struct {
	enclosing *fnState
	fnType    funcType
	chunk     *chunk.Chunk
	name      string
	arity     int

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
	loop       *loopState
}

// compileError is one reported compiler diagnostic, formatted as
// "[line N] Error at '<lexeme>'|at end: <message>".
type compileError struct {
	line  int
	where string
	msg   string
}

func (e *compileError) Error() string {
	if e.where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.line, e.msg)
	}
	return fmt.Sprintf("[line %d] Error %s: %s", e.line, e.where, e.msg)
}

// parser holds the whole compile pass's state: the scanner, the lookahead
// pair, panic-mode bookkeeping, and the chain of fnStates for nested
// functions currently being compiled.
type parser struct {
	sc       *scanner.Scanner
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errs      []error

	heap         *heap.Heap
	fn           *fnState
	class        *classState
	constGlobals map[string]bool
}

// Compile compiles source into a top-level script Function, a nameless
// function of arity 0. On any compile error it returns a nil Function and a
// non-nil joined error; the compiled function is always discarded if any
// error was reported.
func Compile(source string, h *heap.Heap) (*value.Function, error) {
	var sc scanner.Scanner
	sc.Init(source)

	p := &parser{
		sc:           &sc,
		heap:         h,
		constGlobals: map[string]bool{},
	}
	p.fn = &fnState{fnType: typeScript, chunk: chunk.New()}
	p.fn.locals = append(p.fn.locals, local{name: "", depth: 0})

	remove := h.AddRootProvider(p.protectCompilerRoots)
	defer remove()

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn := p.endFunction()

	if p.hadError {
		return nil, errors.Join(p.errs...)
	}
	return fn, nil
}

// protectCompilerRoots marks every constant recorded so far in every
// in-progress function along the compiler's nesting chain, so a collection
// triggered by string interning mid-compile cannot free a constant that
// isn't reachable from anywhere else yet. Compile unregisters it once the
// compile pass finishes, since a long-lived heap (shared across REPL lines)
// would otherwise accumulate one dead provider per call to Compile.
func (p *parser) protectCompilerRoots(mark func(value.Value)) {
	for fs := p.fn; fs != nil; fs = fs.enclosing {
		for _, c := range fs.chunk.Constants {
			mark(c)
		}
	}
}

func (p *parser) currentChunk() *chunk.Chunk { return p.fn.chunk }

// endFunction finalizes the current fnState into a *value.Function and pops
// back to the enclosing compiler, mirroring clox's endCompiler.
func (p *parser) endFunction() *value.Function {
	p.emitReturn()
	fs := p.fn
	fn := p.heap.NewFunction(fs.name, fs.arity, len(fs.upvalues), fs.chunk)
	p.fn = fs.enclosing
	return fn
}

func (p *parser) emitReturn() {
	if p.fn.fnType == typeInitializer {
		// `init` always yields the receiver, never whatever init's body
		// computed.
		p.emitBytes(byte(chunk.OpGetLocal), 0)
	} else {
		p.emitByte(byte(chunk.OpNil))
	}
	p.emitByte(byte(chunk.OpReturn))
}

func (p *parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *parser) emitBytes(b1, b2 byte) {
	p.emitByte(b1)
	p.emitByte(b2)
}

// emitJump writes op followed by a two-byte placeholder and returns the
// placeholder's offset, to be resolved later by patchJump.
func (p *parser) emitJump(op chunk.OpCode) int {
	p.emitByte(byte(op))
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

// patchJump backpatches the placeholder at offset with the distance from
// just past it to the current code position.
func (p *parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0x7fff {
		p.errorAtPrevious("Too much code to jump.")
	}
	code := p.currentChunk().Code
	code[offset] = byte(jump >> 8)
	code[offset+1] = byte(jump)
}

// emitLoop writes a backward OP_LOOP jumping to loopStart.
func (p *parser) emitLoop(loopStart int) {
	p.emitByte(byte(chunk.OpLoop))
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0x7fff {
		p.errorAtPrevious("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

func (p *parser) makeConstant(v value.Value) uint8 {
	idx := p.currentChunk().AddConstant(v)
	if idx > 255 {
		p.errorAtPrevious("Too many constants in one chunk.")
		return 0
	}
	return uint8(idx)
}

// emitConstant writes the short OP_CONSTANT form when the pool index fits in
// a byte, otherwise the 24-bit little-endian OP_CONSTANT_LONG form.
func (p *parser) emitConstant(v value.Value) {
	idx := p.currentChunk().AddConstant(v)
	if idx > 255 {
		p.emitByte(byte(chunk.OpConstantLong))
		p.emitByte(byte(idx))
		p.emitByte(byte(idx >> 8))
		p.emitByte(byte(idx >> 16))
		return
	}
	p.emitBytes(byte(chunk.OpConstant), uint8(idx))
}

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Scan()
		if p.current.Kind != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) check(k token.Kind) bool { return p.current.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var where string
	switch tok.Kind {
	case token.EOF:
		where = "at end"
	case token.ILLEGAL:
		// lexical errors carry their own message as the lexeme; no location
		// suffix needed.
	default:
		where = fmt.Sprintf("at '%s'", tok.Lexeme)
	}
	p.errs = append(p.errs, &compileError{line: tok.Line, where: where, msg: msg})
	p.hadError = true
}

func (p *parser) errorAtPrevious(msg string) { p.errorAt(p.previous, msg) }
func (p *parser) errorAtCurrent(msg string)  { p.errorAt(p.current, msg) }

// synchronize recovers from panic mode at the next statement boundary.
func (p *parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.SEMI {
			return
		}
		switch p.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.VAL, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.CASE, token.DEFAULT:
			return
		}
		p.advance()
	}
}
