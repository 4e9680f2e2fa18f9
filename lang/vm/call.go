package vm

import (
	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/value"
)

// callValue dispatches CALL argc across every callable heap kind: closures
// run through the normal frame machinery, natives are invoked directly, a
// class value constructs an instance (calling "init" if the class defines
// one), and a bound method rebinds its receiver into slot 0 before calling
// its underlying closure.
func (vm *VM) callValue(callee value.Value, argc int) error {
	if !callee.IsObject() {
		return vm.runtimeError(vm.topFrame(), "Can only call functions and classes.")
	}
	switch c := callee.AsObject().(type) {
	case *value.Closure:
		return vm.call(c, argc)
	case *value.Native:
		args := vm.stack[vm.stackTop-argc : vm.stackTop]
		result, err := c.Fn(args)
		if err != nil {
			return vm.runtimeError(vm.topFrame(), "%s", err.Error())
		}
		vm.stackTop -= argc + 1
		vm.push(result)
		return nil
	case *value.Class:
		instance := vm.heap.NewInstance(c, NewAttrTable(4))
		vm.stack[vm.stackTop-argc-1] = value.Obj(instance)
		if initializer, ok := c.Methods.Get(vm.initString.Chars); ok {
			return vm.call(initializer.AsObject().(*value.Closure), argc)
		}
		if argc != 0 {
			return vm.runtimeError(vm.topFrame(), "Expected 0 arguments but got %d.", argc)
		}
		return nil
	case *value.BoundMethod:
		vm.stack[vm.stackTop-argc-1] = c.Receiver
		return vm.call(c.Method, argc)
	default:
		return vm.runtimeError(vm.topFrame(), "Can only call functions and classes.")
	}
}

// call pushes a new frame for closure, checking arity and the call-stack
// depth limit.
func (vm *VM) call(closure *value.Closure, argc int) error {
	if argc != closure.Function.Arity {
		return vm.runtimeError(vm.topFrame(), "Expected %d arguments but got %d.", closure.Function.Arity, argc)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError(vm.topFrame(), "Stack overflow.")
	}
	vm.frames[vm.frameCount] = frame{
		closure: closure,
		code:    closure.Function.Chunk.(*chunk.Chunk),
		base:    vm.stackTop - argc - 1,
	}
	vm.frameCount++
	return nil
}

// invoke implements the INVOKE fast path: a property access immediately
// called, skipping the intermediate BoundMethod allocation GET_PROPERTY+CALL
// would otherwise require.
func (vm *VM) invoke(name string, argc int) error {
	receiver := vm.peek(argc)
	instance, ok := receiver.AsObject().(*value.Instance)
	if !ok {
		return vm.runtimeError(vm.topFrame(), "Only instances have methods.")
	}
	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(instance.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *value.Class, name string, argc int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError(vm.topFrame(), "Undefined property '%s'.", name)
	}
	return vm.call(method.AsObject().(*value.Closure), argc)
}

// bindMethod resolves name on class into a BoundMethod over receiver, or
// reports a runtime error for an undefined property.
func (vm *VM) bindMethod(class *value.Class, name string, receiver value.Value) (value.Value, error) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return value.Nil, vm.runtimeError(vm.topFrame(), "Undefined property '%s'.", name)
	}
	bound := vm.heap.NewBoundMethod(receiver, method.AsObject().(*value.Closure))
	return value.Obj(bound), nil
}

func (vm *VM) defineMethod(name *value.String) {
	method := vm.pop()
	class := vm.peek(0).AsObject().(*value.Class)
	class.Methods.Set(name.Chars, method)
}

// getProperty implements GET_PROPERTY: an instance field wins over a method
// with the same name; otherwise the name is looked up as a method and bound
// to the receiver.
func (vm *VM) getProperty(f *frame) error {
	name := f.readString()
	instance, ok := vm.peek(0).AsObject().(*value.Instance)
	if !ok {
		return vm.runtimeError(f, "Only instances have properties.")
	}
	if v, ok := instance.Fields.Get(name.Chars); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	bound, err := vm.bindMethod(instance.Class, name.Chars, vm.peek(0))
	if err != nil {
		return err
	}
	vm.pop()
	vm.push(bound)
	return nil
}

func (vm *VM) setProperty(f *frame) error {
	name := f.readString()
	instance, ok := vm.peek(1).AsObject().(*value.Instance)
	if !ok {
		return vm.runtimeError(f, "Only instances have fields.")
	}
	instance.Fields.Set(name.Chars, vm.peek(0))
	v := vm.pop()
	vm.pop()
	vm.push(v)
	return nil
}
