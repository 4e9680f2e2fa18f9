package compiler

import (
	"strings"
	"testing"

	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/heap"
	"github.com/loxscript/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *fakeFn {
	t.Helper()
	h := heap.New()
	fn, err := Compile(src, h)
	require.NoError(t, err)
	require.NotNil(t, fn)
	return &fakeFn{code: fn.Chunk.(*chunk.Chunk).Code}
}

type fakeFn struct{ code []byte }

func TestCompileArithmeticPrecedence(t *testing.T) {
	fn := mustCompile(t, "1 + 2 * 3;")
	assert.Equal(t, []byte{
		byte(chunk.OpConstant), 0,
		byte(chunk.OpConstant), 1,
		byte(chunk.OpConstant), 2,
		byte(chunk.OpMultiply),
		byte(chunk.OpAdd),
		byte(chunk.OpPop),
		byte(chunk.OpNil),
		byte(chunk.OpReturn),
	}, fn.code)
}

func TestCompileComparisonOpcodeMapping(t *testing.T) {
	cases := map[string][]byte{
		"1 < 2;":  {byte(chunk.OpLess)},
		"1 > 2;":  {byte(chunk.OpGreater)},
		"1 <= 2;": {byte(chunk.OpGreater), byte(chunk.OpNot)},
		"1 >= 2;": {byte(chunk.OpLess), byte(chunk.OpNot)},
		"1 == 2;": {byte(chunk.OpEqual)},
		"1 != 2;": {byte(chunk.OpEqual), byte(chunk.OpNot)},
	}
	for src, want := range cases {
		fn := mustCompile(t, src)
		got := fn.code[4 : len(fn.code)-3] // strip the two operand pushes and trailing pop/nil/return
		assert.Equal(t, want, got, src)
	}
}

func TestCompileValReassignmentIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile("val x = 1; x = 2;", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot assign to a val variable.")
}

func TestCompileLocalSelfReferenceIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile("{ var a = a; }", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "own initializer")
}

func TestCompileContinueOutsideLoopIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile("continue;", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'continue' outside of a loop")
}

func TestCompileReturnFromTopLevelIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile("return 1;", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't return from top-level code")
}

func TestCompileReturnValueFromInitializerIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`
		class A {
			init() { return 1; }
		}
	`, h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "return a value from an initializer")
}

func TestCompileSuperOutsideClassIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile("fun f() { super.g(); }", h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'super' outside of a class")
}

func TestCompileSuperWithoutSuperclassIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`
		class A {
			f() { super.g(); }
		}
	`, h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no superclass")
}

// TestCompileNestedClosureCapturesOuterLocal exercises upvalue resolution:
// the inner function reads a local from its immediate enclosing function, so
// the outer local must be marked captured and the emitted OP_CLOSURE must
// carry exactly one {isLocal=1, index=1} upvalue pair (slot 0 of outer is
// reserved for the callee, so x lives in slot 1).
func TestCompileNestedClosureCapturesOuterLocal(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`
		fun outer() {
			var x = 1;
			fun inner() {
				return x;
			}
			return inner;
		}
	`, h)
	require.NoError(t, err)

	// outer is a constant of the script chunk; its own chunk holds the
	// OP_CLOSURE for inner.
	var outerCode []byte
	for _, c := range fn.Chunk.(*chunk.Chunk).Constants {
		if f, ok := c.AsObject().(*value.Function); ok && f.Name == "outer" {
			outerCode = f.Chunk.(*chunk.Chunk).Code
		}
	}
	require.NotNil(t, outerCode, "expected outer among the script's constants")

	// outer's body closes over `inner`: find OP_CLOSURE and check the
	// trailing upvalue descriptor byte pair.
	found := false
	for i := 0; i < len(outerCode); i++ {
		if chunk.OpCode(outerCode[i]) == chunk.OpClosure {
			isLocal := outerCode[i+2]
			index := outerCode[i+3]
			assert.Equal(t, byte(1), isLocal)
			assert.Equal(t, byte(1), index)
			found = true
			break
		}
	}
	assert.True(t, found, "expected an OP_CLOSURE for inner")
}

func TestCompileCaseAfterDefaultIsCompileError(t *testing.T) {
	h := heap.New()
	_, err := Compile(`
		switch (1) {
			default: print "d";
			case 1: print "c";
		}
	`, h)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case after the default case")
}

func TestCompileVarRedeclarationClearsValConstness(t *testing.T) {
	h := heap.New()
	_, err := Compile(`
		val x = 1;
		var x = 2;
		x = 3;
	`, h)
	require.NoError(t, err)
}

func TestCompileSwitchEmitsCaseAndJumpPerArm(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`
		switch (1) {
			case 1: print "one";
			case 2: print "two";
			default: print "other";
		}
	`, h)
	require.NoError(t, err)
	disasm := fn.Chunk.Disassemble("switch")

	assert.Equal(t, 2, strings.Count(disasm, "OP_CASE"), "one OP_CASE per `case` arm, none for `default`")
	assert.Equal(t, 2, strings.Count(disasm, "OP_JUMP "), "one OP_JUMP per `case` arm to leave the switch after its body runs")
}

func TestCompileClassBindsMethodsAndInit(t *testing.T) {
	h := heap.New()
	fn, err := Compile(`
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				return this.name;
			}
		}
	`, h)
	require.NoError(t, err)
	disasm := fn.Chunk.Disassemble("script")

	assert.Equal(t, 1, strings.Count(disasm, "OP_CLASS"))
	assert.Equal(t, 2, strings.Count(disasm, "OP_METHOD"))
}
