// Package vm implements the bytecode interpreter: call frames, a
// fixed-capacity value stack, the dispatch loop, upvalue capture/closing,
// and the class/instance/bound-method runtime.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/compiler"
	"github.com/loxscript/loxvm/lang/heap"
	"github.com/loxscript/loxvm/lang/value"
)

// framesMax bounds the call-stack depth.
const framesMax = 64

// stackMax bounds the value stack at framesMax frames of 256 slots each.
const stackMax = framesMax * 256

// checkCancelEvery bounds how often the dispatch loop consults ctx.Err():
// checking every instruction would make cancellation instant but adds
// overhead to the hot loop, so it is sampled instead.
const checkCancelEvery = 1 << 12

// frame is one call's activation record: the closure being executed, its
// program counter, and the stack index where its locals/parameters begin.
type frame struct {
	closure *value.Closure
	code    *chunk.Chunk
	ip      int
	base    int
}

// VM is the interpreter's complete runtime state. Its value stack is a
// fixed-size array field, never reallocated, so that the raw pointers
// value.Upvalue.Location holds into it remain valid for the VM's entire
// lifetime, matching the representation lang/value/closure.go commits to.
type VM struct {
	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]frame
	frameCount int

	openUpvalues *value.Upvalue

	globals *AttrTable
	heap    *heap.Heap

	initString *value.String

	// Stdout is where PRINT writes. Defaults to os.Stdout.
	Stdout io.Writer
}

// New returns a VM backed by h, with its globals table and GC root provider
// already registered.
func New(h *heap.Heap) *VM {
	vm := &VM{heap: h, globals: NewAttrTable(16), Stdout: os.Stdout}
	h.AddRootProvider(vm.markRoots)
	vm.initString = h.NewString("init")
	vm.defineNatives()
	return vm
}

// markRoots reports every Value currently reachable directly from VM state:
// the live stack slots, every frame's closure, the open-upvalue list, the
// globals table, and the "init" sentinel string.
func (vm *VM) markRoots(mark func(value.Value)) {
	for i := 0; i < vm.stackTop; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(value.Obj(vm.frames[i].closure))
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		mark(value.Obj(uv))
	}
	vm.globals.Each(func(_ string, v value.Value) { mark(v) })
	if vm.initString != nil {
		mark(value.Obj(vm.initString))
	}
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// CompileError wraps the diagnostics compiler.Compile reports, distinguishing
// them from a RuntimeError so callers (the CLI) can tell the two outcomes
// apart via errors.As.
type CompileError struct{ Err error }

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }

// Interpret compiles and runs source, returning one of three outcomes: ok
// (nil error), compile error (*CompileError), or runtime error
// (*RuntimeError). The heap and globals persist across calls; only the
// value stack and call frames are reset, so REPL lines share state.
func (vm *VM) Interpret(ctx context.Context, source string) error {
	vm.resetStack()

	fn, err := compiler.Compile(source, vm.heap)
	if err != nil {
		return &CompileError{Err: err}
	}

	closure := vm.heap.NewClosure(fn, nil)
	vm.push(value.Obj(closure))
	if err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run(ctx)
}

func (vm *VM) currentFrame() *frame { return &vm.frames[vm.frameCount-1] }

func (f *frame) readByte() byte {
	b := f.code.Code[f.ip]
	f.ip++
	return b
}

func (f *frame) readShort() int {
	hi, lo := f.code.Code[f.ip], f.code.Code[f.ip+1]
	f.ip += 2
	return int(hi)<<8 | int(lo)
}

func (f *frame) readConstant() value.Value {
	return f.code.Constants[f.readByte()]
}

func (f *frame) readConstantLong() value.Value {
	b0, b1, b2 := f.code.Code[f.ip], f.code.Code[f.ip+1], f.code.Code[f.ip+2]
	f.ip += 3
	idx := int(b0) | int(b1)<<8 | int(b2)<<16
	return f.code.Constants[idx]
}

func (f *frame) readString() *value.String {
	return f.readConstant().AsObject().(*value.String)
}

// run is the dispatch loop: read one byte from the current frame's ip,
// advance, and dispatch.
func (vm *VM) run(ctx context.Context) error {
	frame := vm.currentFrame()
	steps := 0

	for {
		steps++
		if steps%checkCancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return vm.runtimeError(frame, "interpretation cancelled: %s", err)
			}
		}

		op := chunk.OpCode(frame.readByte())
		switch op {
		case chunk.OpConstant:
			vm.push(frame.readConstant())
		case chunk.OpConstantLong:
			vm.push(frame.readConstantLong())
		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.True)
		case chunk.OpFalse:
			vm.push(value.False)

		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			vm.push(vm.stack[frame.base+int(frame.readByte())])
		case chunk.OpSetLocal:
			vm.stack[frame.base+int(frame.readByte())] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := frame.readString()
			v, ok := vm.globals.Get(name.Chars)
			if !ok {
				return vm.runtimeError(frame, "Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := frame.readString()
			vm.globals.Set(name.Chars, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := frame.readString()
			if _, ok := vm.globals.Get(name.Chars); !ok {
				return vm.runtimeError(frame, "Undefined variable '%s'.", name.Chars)
			}
			vm.globals.Set(name.Chars, vm.peek(0))

		case chunk.OpGetUpvalue:
			idx := frame.readByte()
			vm.push(*frame.closure.Upvalues[idx].Location)
		case chunk.OpSetUpvalue:
			idx := frame.readByte()
			*frame.closure.Upvalues[idx].Location = vm.peek(0)

		case chunk.OpGetProperty:
			if err := vm.getProperty(frame); err != nil {
				return err
			}
		case chunk.OpSetProperty:
			if err := vm.setProperty(frame); err != nil {
				return err
			}
		case chunk.OpGetSuper:
			name := frame.readString()
			superclass := vm.pop().AsObject().(*value.Class)
			receiver := vm.pop()
			bound, err := vm.bindMethod(superclass, name.Chars, receiver)
			if err != nil {
				return vm.runtimeError(frame, "%s", err.Error())
			}
			vm.push(bound)

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater, chunk.OpLess:
			if err := vm.comparisonOp(frame, op); err != nil {
				return err
			}
		case chunk.OpAdd:
			if err := vm.addOp(frame); err != nil {
				return err
			}
		case chunk.OpSubtract, chunk.OpMultiply, chunk.OpDivide:
			if err := vm.arithmeticOp(frame, op); err != nil {
				return err
			}
		case chunk.OpNot:
			vm.push(value.Bool(!vm.pop().Truth()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(frame, "Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.Stdout, vm.pop().String())

		case chunk.OpJump:
			offset := frame.readShort()
			frame.ip += offset
		case chunk.OpJumpIfFalse:
			offset := frame.readShort()
			if !vm.peek(0).Truth() {
				frame.ip += offset
			}
		case chunk.OpLoop:
			offset := frame.readShort()
			frame.ip -= offset
		case chunk.OpCase:
			offset := frame.readShort()
			caseValue := vm.pop()
			if !value.Equal(caseValue, vm.peek(0)) {
				frame.ip += offset
			}

		case chunk.OpCall:
			argc := int(frame.readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			frame = vm.currentFrame()
		case chunk.OpInvoke:
			name := frame.readString()
			argc := int(frame.readByte())
			if err := vm.invoke(name.Chars, argc); err != nil {
				return err
			}
			frame = vm.currentFrame()
		case chunk.OpSuperInvoke:
			name := frame.readString()
			argc := int(frame.readByte())
			superclass := vm.pop().AsObject().(*value.Class)
			if err := vm.invokeFromClass(superclass, name.Chars, argc); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case chunk.OpClosure:
			fn := frame.readConstant().AsObject().(*value.Function)
			closure := vm.heap.NewClosure(fn, make([]*value.Upvalue, fn.UpvalueCount))
			// Pushed before the capture loop below runs, so a collection
			// triggered by captureUpvalue's own allocation cannot sweep this
			// closure out from under it.
			vm.push(value.Obj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := frame.readByte()
				index := frame.readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + int(index))
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case chunk.OpClass:
			name := frame.readString()
			vm.push(value.Obj(vm.heap.NewClass(name.Chars, NewAttrTable(4))))
		case chunk.OpInherit:
			super, ok := vm.peek(1).AsObject().(*value.Class)
			if !ok {
				return vm.runtimeError(frame, "Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObject().(*value.Class)
			super.Methods.Each(func(name string, m value.Value) { subclass.Methods.Set(name, m) })
			vm.pop() // subclass
		case chunk.OpMethod:
			vm.defineMethod(frame.readString())

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.base
			vm.push(result)
			frame = vm.currentFrame()

		default:
			return vm.runtimeError(frame, "unknown opcode %v", op)
		}
	}
}
