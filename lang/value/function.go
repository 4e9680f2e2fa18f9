package value

// Function wraps a compiled function's code, its arity, and the number of
// upvalues it captures. The compiled code itself lives in a *chunk.Chunk; to
// avoid an import cycle (chunk doesn't need to know about Function, but
// Function needs a Chunk), the field is typed as the narrow FunctionChunk
// interface here and narrowed back by the vm/compiler packages, the same
// way a compiler and its runtime share an opaque code pointer across
// packages sitting on either side of it in the dependency order.
type Function struct {
	head Header

	Name          string
	Arity         int
	UpvalueCount  int
	Chunk         FunctionChunk
}

// FunctionChunk is implemented by *chunk.Chunk. It is declared here, rather
// than importing lang/chunk directly, only to keep this package at the
// bottom of the dependency order; lang/chunk already depends on
// lang/value for its constant pool, so the reverse import would cycle.
type FunctionChunk interface {
	Disassemble(name string) string
	// TraceConstants invokes mark for every Value in the chunk's constant
	// pool, letting Function.TraceChildren reach them without this package
	// importing lang/chunk.
	TraceConstants(mark func(Value))
}

var (
	_ Object = (*Function)(nil)
	_ Tracer = (*Function)(nil)
)

// TraceChildren marks every value in the function's constant pool. A
// constant reachable only through a compiled function (a nested function, a
// string literal or identifier name) would otherwise never be
// marked once the function itself is the only root keeping it alive.
func (f *Function) TraceChildren(markValue func(Value), markObject func(Object)) {
	f.Chunk.TraceConstants(markValue)
}

func NewFunction(name string, arity, upvalueCount int, chunk FunctionChunk, size int) *Function {
	return &Function{
		head:         NewHeader(ObjFunction, size),
		Name:         name,
		Arity:        arity,
		UpvalueCount: upvalueCount,
		Chunk:        chunk,
	}
}

func (f *Function) Header() *Header { return &f.head }
func (f *Function) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return "<fn " + f.Name + ">"
}

// Native is a built-in callable implemented in Go. The VM invokes NativeFn
// directly from the CALL opcode handler.
type Native struct {
	head Header

	Name string
	Fn   NativeFn
}

// NativeFn is the signature of a native callable: given the arguments (no
// receiver slot), it returns a result or an error message.
type NativeFn func(args []Value) (Value, error)

var _ Object = (*Native)(nil)

func NewNative(name string, fn NativeFn, size int) *Native {
	return &Native{head: NewHeader(ObjNative, size), Name: name, Fn: fn}
}

func (n *Native) Header() *Header { return &n.head }
func (n *Native) String() string  { return "<native fn " + n.Name + ">" }
