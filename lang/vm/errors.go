package vm

import (
	"fmt"
	"strings"

	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/value"
)

// RuntimeError is one message plus a captured stack trace. It implements
// error so the CLI can distinguish it from a *CompileError via errors.As and
// choose exit code 70 instead of 65.
type RuntimeError struct {
	Message    string
	StackTrace []string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.StackTrace {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// topFrame returns the currently executing frame, or nil before any frame
// has been pushed (the brief window at the start of Interpret between
// pushing the script closure and vm.call succeeding).
func (vm *VM) topFrame() *frame {
	if vm.frameCount == 0 {
		return nil
	}
	return vm.currentFrame()
}

// runtimeError builds a *RuntimeError reporting msg, with a stack trace
// walking every currently pushed frame from innermost to outermost. f is
// accepted for call-site clarity but the trace always reflects the live
// vm.frames, since f (when non-nil) already is &vm.frames[vm.frameCount-1].
func (vm *VM) runtimeError(f *frame, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Message:    fmt.Sprintf(format, args...),
		StackTrace: vm.captureStackTrace(),
	}
}

// captureStackTrace renders one line per live call frame, innermost first,
// in the "[line N] in <name>" form the compiler's diagnostics already use.
func (vm *VM) captureStackTrace() []string {
	lines := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		line := fr.code.LineFor(fr.ip - 1)
		name := fr.closure.Function.Name
		if name == "" {
			lines = append(lines, fmt.Sprintf("[line %d] in script", line))
		} else {
			lines = append(lines, fmt.Sprintf("[line %d] in %s()", line, name))
		}
	}
	return lines
}

// addOp implements ADD's overload: two strings concatenate to an interned
// result, two numbers sum, anything else is a runtime error.
func (vm *VM) addOp(f *frame) error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	case a.Is(value.ObjString) && b.Is(value.ObjString):
		vm.pop()
		vm.pop()
		as := a.AsObject().(*value.String).Chars
		bs := b.AsObject().(*value.String).Chars
		vm.push(value.Obj(vm.heap.NewString(as + bs)))
	default:
		return vm.runtimeError(f, "Operands must be two numbers or two strings.")
	}
	return nil
}

// arithmeticOp implements SUBTRACT/MULTIPLY/DIVIDE: both operands must be
// numbers.
func (vm *VM) arithmeticOp(f *frame, op chunk.OpCode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(f, "Operands must be numbers.")
	}
	b, a := vm.pop().AsNumber(), vm.pop().AsNumber()
	switch op {
	case chunk.OpSubtract:
		vm.push(value.Number(a - b))
	case chunk.OpMultiply:
		vm.push(value.Number(a * b))
	case chunk.OpDivide:
		vm.push(value.Number(a / b))
	}
	return nil
}

// comparisonOp implements GREATER/LESS: both operands must be numbers.
func (vm *VM) comparisonOp(f *frame, op chunk.OpCode) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError(f, "Operands must be numbers.")
	}
	b, a := vm.pop().AsNumber(), vm.pop().AsNumber()
	switch op {
	case chunk.OpGreater:
		vm.push(value.Bool(a > b))
	case chunk.OpLess:
		vm.push(value.Bool(a < b))
	}
	return nil
}
