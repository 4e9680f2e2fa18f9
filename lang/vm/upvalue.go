package vm

import (
	"unsafe"

	"github.com/loxscript/loxvm/lang/value"
)

// addr gives a total order over pointers into vm.stack, for maintaining the
// open-upvalue list sorted by descending stack address. This is sound
// specifically because vm.stack is a fixed-size array field of a
// heap-allocated *VM (never reallocated, never moved by a slice grow) for
// the entire lifetime of any Upvalue pointing into it, so converting the
// pointer to a uintptr purely for comparison never outlives the object it
// was derived from.
func addr(v *value.Value) uintptr { return uintptr(unsafe.Pointer(v)) }

// captureUpvalue returns the open upvalue for vm.stack[slot], reusing an
// existing one if the list already has one for that slot: it walks the
// open-upvalue list and either returns the existing upvalue pointing at slot
// or inserts a newly allocated one at the correct position.
func (vm *VM) captureUpvalue(slot int) *value.Upvalue {
	location := &vm.stack[slot]

	var prev *value.Upvalue
	cur := vm.openUpvalues
	for cur != nil && addr(cur.Location) > addr(location) {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Location == location {
		return cur
	}

	created := vm.heap.NewUpvalue(location)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose location is at or above
// &vm.stack[lastSlot], copying each captured slot's value into the upvalue's
// own storage before the frame that owns that slot is popped.
func (vm *VM) closeUpvalues(lastSlot int) {
	last := &vm.stack[lastSlot]
	for vm.openUpvalues != nil && addr(vm.openUpvalues.Location) >= addr(last) {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.Next
	}
}
