package compiler

import (
	"strconv"

	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/token"
	"github.com/loxscript/loxvm/lang/value"
)

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (p *parser) number(canAssign bool) {
	n, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(value.Number(n))
}

// stringLit emits the previous token's lexeme as a constant. The scanner
// already strips the surrounding quotes into Lexeme, so no further trimming
// happens here.
func (p *parser) stringLit(canAssign bool) {
	p.emitConstant(value.Obj(p.heap.NewString(p.previous.Lexeme)))
}

func (p *parser) literal(canAssign bool) {
	switch p.previous.Kind {
	case token.FALSE:
		p.emitByte(byte(chunk.OpFalse))
	case token.TRUE:
		p.emitByte(byte(chunk.OpTrue))
	case token.NIL:
		p.emitByte(byte(chunk.OpNil))
	}
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

// variableNamed looks up name as if it had just been scanned as an
// identifier token, for the synthetic `this`/`super` references emitted by
// method and class compilation.
func (p *parser) variableNamed(name string) {
	p.namedVariable(token.Token{Kind: token.IDENT, Lexeme: name, Line: p.previous.Line}, false)
}

// namedVariable resolves tok as a local, else an upvalue, else a global
//, emitting the matching
// get/set pair. A `val` target, local or global, rejects assignment.
func (p *parser) namedVariable(tok token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	var arg int
	var isConst bool

	if slot := p.resolveLocal(p.fn, tok.Lexeme); slot != -1 {
		arg = slot
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
		isConst = p.fn.locals[slot].isConst
	} else if up := p.resolveUpvalue(p.fn, tok.Lexeme); up != -1 {
		arg = up
		getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		arg = int(p.identifierConstant(tok.Lexeme))
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
		isConst = p.constGlobals[tok.Lexeme]
	}

	if canAssign && p.match(token.EQ) {
		if isConst {
			p.errorAtPrevious("Cannot assign to a val variable.")
		}
		p.expression()
		p.emitBytes(byte(setOp), byte(arg))
		return
	}
	p.emitBytes(byte(getOp), byte(arg))
}

func (p *parser) unary(canAssign bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.MINUS:
		p.emitByte(byte(chunk.OpNegate))
	case token.BANG:
		p.emitByte(byte(chunk.OpNot))
	}
}

// binary compiles the right operand at one precedence level higher than the
// operator's own (left-associativity), then emits the matching opcode(s).
// The mapping follows the one consistent version found across the reference
// implementation's binary() function: `<`/`>` map directly to LESS/GREATER,
// `<=`/`>=` invert the opposite strict comparison.
func (p *parser) binary(canAssign bool) {
	opKind := p.previous.Kind
	rule := p.getRule(opKind)
	p.parsePrecedence(rule.prec + 1)

	switch opKind {
	case token.PLUS:
		p.emitByte(byte(chunk.OpAdd))
	case token.MINUS:
		p.emitByte(byte(chunk.OpSubtract))
	case token.STAR:
		p.emitByte(byte(chunk.OpMultiply))
	case token.SLASH:
		p.emitByte(byte(chunk.OpDivide))
	case token.BANG_EQ:
		p.emitBytes(byte(chunk.OpEqual), byte(chunk.OpNot))
	case token.EQ_EQ:
		p.emitByte(byte(chunk.OpEqual))
	case token.GT:
		p.emitByte(byte(chunk.OpGreater))
	case token.GE:
		p.emitBytes(byte(chunk.OpLess), byte(chunk.OpNot))
	case token.LT:
		p.emitByte(byte(chunk.OpLess))
	case token.LE:
		p.emitBytes(byte(chunk.OpGreater), byte(chunk.OpNot))
	}
}

func (p *parser) and(canAssign bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitByte(byte(chunk.OpPop))
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *parser) or(canAssign bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitByte(byte(chunk.OpPop))
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) argumentList() byte {
	var argc int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argc == 255 {
				p.errorAtPrevious("Can't have more than 255 arguments.")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argc)
}

func (p *parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitBytes(byte(chunk.OpCall), argc)
}

// dot compiles a `.name` suffix: a property get, a property set (if an
// assignment target), or a call immediately following, which compiles to
// the fused OP_INVOKE fast path instead of OP_GET_PROPERTY + OP_CALL.
func (p *parser) dot(canAssign bool) {
	p.consume(token.IDENT, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous.Lexeme)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitBytes(byte(chunk.OpSetProperty), name)
	case p.match(token.LPAREN):
		argc := p.argumentList()
		p.emitBytes(byte(chunk.OpInvoke), name)
		p.emitByte(argc)
	default:
		p.emitBytes(byte(chunk.OpGetProperty), name)
	}
}

func (p *parser) this(canAssign bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'this' outside of a class.")
		return
	}
	p.variableNamed("this")
}

// super compiles `super.name` and `super.name(args)`, resolving the
// receiver via the synthetic `this` local and the superclass's method table
// via the synthetic `super` upvalue/local captured at class-compile time.
func (p *parser) super(canAssign bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.errorAtPrevious("Can't use 'super' in a class with no superclass.")
	}
	p.consume(token.DOT, "Expect '.' after 'super'.")
	p.consume(token.IDENT, "Expect superclass method name.")
	name := p.identifierConstant(p.previous.Lexeme)

	p.variableNamed("this")
	if p.match(token.LPAREN) {
		argc := p.argumentList()
		p.variableNamed("super")
		p.emitBytes(byte(chunk.OpSuperInvoke), name)
		p.emitByte(argc)
		return
	}
	p.variableNamed("super")
	p.emitBytes(byte(chunk.OpGetSuper), name)
}
