package compiler

import (
	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/token"
	"github.com/loxscript/loxvm/lang/value"
)

func (p *parser) beginScope() { p.fn.scopeDepth++ }

// endScope pops every local declared in the scope just exited, closing any
// that were captured by a nested closure rather than merely popping them
//.
func (p *parser) endScope() {
	fs := p.fn
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		last := fs.locals[len(fs.locals)-1]
		if last.isCaptured {
			p.emitByte(byte(chunk.OpCloseUpvalue))
		} else {
			p.emitByte(byte(chunk.OpPop))
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func (p *parser) identifierConstant(name string) uint8 {
	return p.makeConstant(value.Obj(p.heap.NewString(name)))
}

// resolveLocal searches fs's locals innermost-first. A local found with
// depth == -1 is still in its own initializer expression.
func (p *parser) resolveLocal(fs *fnState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				p.errorAtPrevious("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (p *parser) addLocal(name string, isConst bool) {
	if len(p.fn.locals) == 256 {
		p.errorAtPrevious("Too many local variables in function.")
		return
	}
	p.fn.locals = append(p.fn.locals, local{name: name, depth: -1, isConst: isConst})
}

// declareVariable registers the previously-consumed identifier as a new
// local, rejecting a duplicate name declared in the same scope.
func (p *parser) declareVariable(isConst bool) {
	fs := p.fn
	if fs.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != -1 && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			p.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name, isConst)
}

// parseVariable consumes a name token and declares it, returning the global
// constant index (meaningless for locals, where resolution is by stack slot)
// and the bare name for defineVariable's const bookkeeping.
func (p *parser) parseVariable(msg string, isConst bool) (uint8, string) {
	p.consume(token.IDENT, msg)
	name := p.previous.Lexeme
	p.declareVariable(isConst)
	if p.fn.scopeDepth > 0 {
		return 0, name
	}
	return p.identifierConstant(name), name
}

func (p *parser) markInitialized() {
	if p.fn.scopeDepth == 0 {
		return
	}
	p.fn.locals[len(p.fn.locals)-1].depth = p.fn.scopeDepth
}

// defineVariable finishes a declaration: locals just become initialized in
// place (their value is already on the stack at the right slot); globals get
// an explicit OP_DEFINE_GLOBAL and, if declared `val`, an entry in the
// parallel const-globals table.
func (p *parser) defineVariable(global uint8, name string, isConst bool) {
	if p.fn.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	if isConst {
		p.constGlobals[name] = true
	} else {
		delete(p.constGlobals, name)
	}
	p.emitBytes(byte(chunk.OpDefineGlobal), global)
}
