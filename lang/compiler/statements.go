package compiler

import (
	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/token"
	"github.com/loxscript/loxvm/lang/value"
)

func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration(false)
	case p.match(token.VAL):
		p.varDeclaration(true)
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.CONTINUE):
		p.continueStatement()
	case p.match(token.SWITCH):
		p.switchStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after value.")
	p.emitByte(byte(chunk.OpPrint))
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMI, "Expect ';' after expression.")
	p.emitByte(byte(chunk.OpPop))
}

func (p *parser) varDeclaration(isConst bool) {
	global, name := p.parseVariable("Expect variable name.", isConst)
	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitByte(byte(chunk.OpNil))
	}
	p.consume(token.SEMI, "Expect ';' after variable declaration.")
	p.defineVariable(global, name, isConst)
}

func (p *parser) funDeclaration() {
	global, name := p.parseVariable("Expect function name.", false)
	p.markInitialized()
	p.function(name, typeFunction)
	p.defineVariable(global, name, false)
}

// function compiles a nested function body (or method) into its own
// fnState, then emits OP_CLOSURE in the enclosing chunk with one {isLocal,
// index} pair per captured upvalue.
func (p *parser) function(name string, fnType funcType) {
	fs := &fnState{enclosing: p.fn, fnType: fnType, chunk: chunk.New(), name: name}
	slot0 := ""
	if fnType == typeMethod || fnType == typeInitializer {
		slot0 = "this"
	}
	fs.locals = append(fs.locals, local{name: slot0, depth: 0})
	p.fn = fs

	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			p.fn.arity++
			if p.fn.arity > 255 {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constIdx, pname := p.parseVariable("Expect parameter name.", false)
			p.defineVariable(constIdx, pname, false)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()

	upvalues := append([]upvalueRef(nil), fs.upvalues...)
	fn := p.endFunction()

	p.emitBytes(byte(chunk.OpClosure), p.makeConstant(value.Obj(fn)))
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

// classDeclaration compiles `class Name { ... }` and `class Name < Super {
// ... }`. A class's name is bound as a variable exactly like a function's,
// then methods are compiled with the class value kept on the stack so
// OP_METHOD can bind into it.
func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "Expect class name.")
	className := p.previous.Lexeme
	nameConstant := p.identifierConstant(className)
	p.declareVariable(false)

	p.emitBytes(byte(chunk.OpClass), nameConstant)
	p.defineVariable(nameConstant, className, false)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.match(token.LT) {
		p.consume(token.IDENT, "Expect superclass name.")
		p.variable(false)
		if p.previous.Lexeme == className {
			p.errorAtPrevious("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal("super", false)
		p.defineVariable(0, "super", false)

		p.variableNamed(className)
		p.emitByte(byte(chunk.OpInherit))
		cs.hasSuperclass = true
	}

	p.variableNamed(className)
	p.consume(token.LBRACE, "Expect '{' before class body.")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "Expect '}' after class body.")
	p.emitByte(byte(chunk.OpPop))

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

func (p *parser) method() {
	p.consume(token.IDENT, "Expect method name.")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)

	fnType := typeMethod
	if name == "init" {
		fnType = typeInitializer
	}
	p.function(name, fnType)
	p.emitBytes(byte(chunk.OpMethod), nameConst)
}

func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitByte(byte(chunk.OpPop))
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitByte(byte(chunk.OpPop))

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loop := &loopState{enclosing: p.fn.loop, loopStart: len(p.currentChunk().Code), scopeDepth: p.fn.scopeDepth}
	p.fn.loop = loop

	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitByte(byte(chunk.OpPop))
	p.statement()
	p.emitLoop(loop.loopStart)

	p.patchJump(exitJump)
	p.emitByte(byte(chunk.OpPop))

	p.fn.loop = loop.enclosing
}

// forStatement desugars the increment clause by jumping over it on entry,
// running it just before looping back, and only then pushing the loop
// context so `continue` lands on the increment rather than skipping it
// (mirrors the reference compiler's forStatement exactly).
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'.")
	switch {
	case p.match(token.SEMI):
	case p.match(token.VAR):
		p.varDeclaration(false)
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(token.SEMI) {
		p.expression()
		p.consume(token.SEMI, "Expect ';' after loop condition.")
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitByte(byte(chunk.OpPop))
	}

	if !p.match(token.RPAREN) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrementStart := len(p.currentChunk().Code)
		p.expression()
		p.emitByte(byte(chunk.OpPop))
		p.consume(token.RPAREN, "Expect ')' after for clauses.")
		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	loop := &loopState{enclosing: p.fn.loop, loopStart: loopStart, scopeDepth: p.fn.scopeDepth}
	p.fn.loop = loop

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitByte(byte(chunk.OpPop))
	}

	p.fn.loop = loop.enclosing
	p.endScope()
}

func (p *parser) continueStatement() {
	if p.fn.loop == nil {
		p.errorAtPrevious("Can't use 'continue' outside of a loop.")
		return
	}
	p.consume(token.SEMI, "Expect ';' after 'continue'.")

	loop := p.fn.loop
	for i := len(p.fn.locals) - 1; i >= 0 && p.fn.locals[i].depth > loop.scopeDepth; i-- {
		if p.fn.locals[i].isCaptured {
			p.emitByte(byte(chunk.OpCloseUpvalue))
		} else {
			p.emitByte(byte(chunk.OpPop))
		}
	}
	p.emitLoop(loop.loopStart)
}

// switchStatement compiles `switch (expr) { case v: stmt ... default: stmt
// }`. Each case compiles to an OP_CASE that pops the case value and jumps
// past the body only when it doesn't match the switch value, falling
// through into the body (with the switch value left on the stack) when it
// does; a final OP_POP after the closing brace discards the switch value.
func (p *parser) switchStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'switch'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after switch value.")
	p.consume(token.LBRACE, "Expect '{' before switch cases.")

	var endJumps []int
	sawDefault := false

	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		switch {
		case p.match(token.CASE):
			if sawDefault {
				p.errorAtPrevious("Can't have a case after the default case.")
			}
			endJumps = append(endJumps, p.caseStatement())
		case p.match(token.DEFAULT):
			if sawDefault {
				p.errorAtPrevious("Can't have more than one default case.")
			}
			sawDefault = true
			p.consume(token.COLON, "Expect ':' after 'default'.")
			p.statement()
		default:
			p.errorAtCurrent("Expect 'case' or 'default' in switch statement.")
			for !p.check(token.RBRACE) && !p.check(token.EOF) &&
				!p.check(token.CASE) && !p.check(token.DEFAULT) {
				p.advance()
			}
		}
	}
	p.consume(token.RBRACE, "Expect '}' after switch cases.")

	// A matched arm's end jump lands on the final OP_POP, so the switch value
	// is discarded on every path.
	for _, j := range endJumps {
		p.patchJump(j)
	}
	p.emitByte(byte(chunk.OpPop))
}

func (p *parser) caseStatement() int {
	p.expression()
	p.consume(token.COLON, "Expect ':' after case value.")
	nextCase := p.emitJump(chunk.OpCase)
	p.statement()
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(nextCase)
	return endJump
}

func (p *parser) returnStatement() {
	if p.fn.fnType == typeScript {
		p.errorAtPrevious("Can't return from top-level code.")
	}
	if p.match(token.SEMI) {
		p.emitReturn()
		return
	}
	if p.fn.fnType == typeInitializer {
		p.errorAtPrevious("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(token.SEMI, "Expect ';' after return value.")
	p.emitByte(byte(chunk.OpReturn))
}
