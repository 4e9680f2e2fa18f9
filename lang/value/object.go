package value

// ObjKind enumerates the kinds of heap-allocated object a Value may point to.
type ObjKind uint8

const (
	ObjString ObjKind = iota
	ObjFunction
	ObjNative
	ObjClosure
	ObjUpvalue
	ObjClass
	ObjInstance
	ObjBoundMethod
)

var objKindNames = [...]string{
	ObjString: "string", ObjFunction: "function", ObjNative: "native",
	ObjClosure: "closure", ObjUpvalue: "upvalue", ObjClass: "class",
	ObjInstance: "instance", ObjBoundMethod: "bound method",
}

func (k ObjKind) String() string {
	if int(k) >= len(objKindNames) {
		return "unknown"
	}
	return objKindNames[k]
}

// Header is embedded by every heap Object. It carries the sweeper's
// intrusive-list link and mark bit. The heap package owns the list: every
// allocation prepends to it, every swept object is unlinked from it.
type Header struct {
	kind    ObjKind
	marked  bool
	next    Object
	size    int // bytes charged against bytes_allocated for this object
}

// Kind returns the object's heap kind.
func (h *Header) Kind() ObjKind { return h.kind }

// Marked reports whether the collector has marked this object in the current
// cycle.
func (h *Header) Marked() bool { return h.marked }

// SetMarked sets the mark bit; used by the collector.
func (h *Header) SetMarked(m bool) { h.marked = m }

// Next returns the next object in the heap's intrusive list.
func (h *Header) Next() Object { return h.next }

// SetNext sets the next object in the heap's intrusive list.
func (h *Header) SetNext(o Object) { h.next = o }

// Size returns the number of bytes this object was charged against
// bytes_allocated when it was created.
func (h *Header) Size() int { return h.size }

// NewHeader builds the Header for a freshly allocated object of the given
// kind, charged for size bytes. Only the heap package should call this.
func NewHeader(kind ObjKind, size int) Header {
	return Header{kind: kind, size: size}
}

// Object is implemented by every heap-allocated value. The shared Header
// gives the collector and allocator a uniform way to walk and mark
// heterogeneous objects without relying on inheritance: a kind tag and a
// type switch stand in for a class hierarchy.
type Object interface {
	String() string
	Header() *Header
}

// Tracer is implemented by Object kinds that hold references to other
// Values/Objects that the collector must trace. Object
// kinds with no children (String, Native) do not implement it.
type Tracer interface {
	Object
	// TraceChildren invokes markValue/markObject for every Value/Object this
	// object directly references.
	TraceChildren(markValue func(Value), markObject func(Object))
}
