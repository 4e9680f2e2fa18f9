// Package heap implements the allocator and garbage collector: a single
// entry point for all heap traffic (the reallocate-equivalent allocation
// accounting), the intrusive object list, the string intern table, and the
// tricolor mark-sweep collector.
package heap

import (
	"github.com/loxscript/loxvm/lang/table"
	"github.com/loxscript/loxvm/lang/value"
)

// growFactor is the multiplier applied to the next collection threshold
// after each cycle.
const growFactor = 2

// initialNextGC is an arbitrary starting threshold; real clox uses 1MB. This
// port counts nominal per-kind sizes rather than true byte sizes (see the
// per-kind New* methods below), so the absolute number matters only in that
// it is reached occasionally enough to exercise collection in tests without
// collecting on every single allocation.
const initialNextGC = 1 << 14

// RootProvider is called during mark-roots to report additional Values that
// must survive collection. The VM registers one for its
// stacks/frames/globals/open-upvalues; the compiler registers one for the
// function(s) currently being compiled, covering the same hazard that
// clox's addConstant push/pop discipline exists to cover (see
// lang/chunk.Chunk.AddConstant's doc comment).
type RootProvider func(mark func(value.Value))

// Heap owns every object this interpreter allocates: the intrusive list
// (exactly one heap owns it), the string intern set, and the mark-sweep
// collector's bookkeeping.
type Heap struct {
	objects value.Object // intrusive list head
	strings *table.Table // intern set

	allocated int64
	nextGC    int64
	gray      []value.Object

	roots      map[int]RootProvider
	nextRootID int

	// StressGC, when true, runs a full collection on every allocation. Used
	// by tests to flush out reachability bugs.
	StressGC bool

	// OnCollect, if set, is invoked after every collection with the number of
	// objects freed and the bytes they had been charged; used by tests.
	OnCollect func(freed int, freedBytes int64)
}

// New returns an empty Heap.
func New() *Heap {
	return &Heap{strings: table.New(), nextGC: initialNextGC, roots: map[int]RootProvider{}}
}

// AddRootProvider registers fn to be consulted on every collection and
// returns a function that unregisters it. The VM registers its own root
// provider for the heap's entire lifetime and never calls the returned
// func; a caller whose roots are only valid for a limited span (e.g. the
// compiler, whose in-progress constant pools stop mattering once Compile
// returns) must call it to avoid accumulating dead providers on a
// long-lived heap.
func (h *Heap) AddRootProvider(fn RootProvider) (remove func()) {
	id := h.nextRootID
	h.nextRootID++
	h.roots[id] = fn
	return func() { delete(h.roots, id) }
}

// BytesAllocated returns the allocator's running total, for diagnostics and
// verifying it drops to zero after FreeAll.
func (h *Heap) BytesAllocated() int64 { return h.allocated }

// NextGC returns the threshold that triggers the next collection.
func (h *Heap) NextGC() int64 { return h.nextGC }

func (h *Heap) link(o value.Object) {
	o.Header().SetNext(h.objects)
	h.objects = o
}

// beforeAlloc charges size bytes against the allocator and, if that pushes
// the heap over its growing threshold (or StressGC is set), collects before
// the caller links the new object in. Running collection *before* linking
// the new object is safe because nothing yet references it; it cannot be
// swept away by a collection it was never part of.
func (h *Heap) beforeAlloc(size int) {
	h.allocated += int64(size)
	if h.StressGC || h.allocated > h.nextGC {
		h.Collect()
	}
}

// NewString interns chars, returning the canonical *value.String. Strings
// with identical content always come back as the same object, since every
// lookup goes through the same intern table that every insert populates.
func (h *Heap) NewString(chars string) *value.String {
	hash := value.HashFNV1a([]byte(chars))
	if existing := h.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	h.beforeAlloc(len(chars))
	s := value.NewString(chars, hash, len(chars))
	h.link(s)
	h.strings.Set(s, value.Nil)
	return s
}

const (
	sizeFunction    = 64
	sizeNative      = 32
	sizeClosure     = 32
	sizeUpvalue     = 24
	sizeClass       = 48
	sizeInstance    = 48
	sizeBoundMethod = 24
)

// NewFunction allocates a Function object.
func (h *Heap) NewFunction(name string, arity, upvalueCount int, fc value.FunctionChunk) *value.Function {
	h.beforeAlloc(sizeFunction)
	fn := value.NewFunction(name, arity, upvalueCount, fc, sizeFunction)
	h.link(fn)
	return fn
}

// NewNative allocates a Native callable.
func (h *Heap) NewNative(name string, fn value.NativeFn) *value.Native {
	h.beforeAlloc(sizeNative)
	n := value.NewNative(name, fn, sizeNative)
	h.link(n)
	return n
}

// NewClosure allocates a Closure over fn with the given upvalues.
func (h *Heap) NewClosure(fn *value.Function, upvalues []*value.Upvalue) *value.Closure {
	h.beforeAlloc(sizeClosure)
	c := value.NewClosure(fn, upvalues, sizeClosure)
	h.link(c)
	return c
}

// NewUpvalue allocates an open Upvalue pointing at slot.
func (h *Heap) NewUpvalue(slot *value.Value) *value.Upvalue {
	h.beforeAlloc(sizeUpvalue)
	uv := value.NewUpvalue(slot, sizeUpvalue)
	h.link(uv)
	return uv
}

// NewClass allocates a Class named name with an empty method table.
func (h *Heap) NewClass(name string, methods value.AttrTable) *value.Class {
	h.beforeAlloc(sizeClass)
	c := value.NewClass(name, methods, sizeClass)
	h.link(c)
	return c
}

// NewInstance allocates an Instance of class with an empty field table.
func (h *Heap) NewInstance(class *value.Class, fields value.AttrTable) *value.Instance {
	h.beforeAlloc(sizeInstance)
	i := value.NewInstance(class, fields, sizeInstance)
	h.link(i)
	return i
}

// NewBoundMethod allocates a BoundMethod pairing receiver and method.
func (h *Heap) NewBoundMethod(receiver value.Value, method *value.Closure) *value.BoundMethod {
	h.beforeAlloc(sizeBoundMethod)
	b := value.NewBoundMethod(receiver, method, sizeBoundMethod)
	h.link(b)
	return b
}

// FreeAll tears down the heap unconditionally: every heap object, the intern
// table, and the gray stack buffer. After it returns, BytesAllocated is
// zero.
func (h *Heap) FreeAll() {
	h.objects = nil
	h.strings = table.New()
	h.gray = nil
	h.allocated = 0
}
