package vm

import (
	"time"

	"github.com/loxscript/loxvm/lang/value"
)

// defineNatives populates the small table of native callables this language
// exposes in place of a standard library. clock is the one native every
// clox-family interpreter exposes, kept as the sole entry until a concrete
// program needs more.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", func(args []value.Value) (value.Value, error) {
		return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
	})
}

func (vm *VM) defineNative(name string, fn value.NativeFn) {
	native := vm.heap.NewNative(name, fn)
	vm.globals.Set(name, value.Obj(native))
}
