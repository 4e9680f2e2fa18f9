package value

// AttrTable is the map kind used for a Class's methods and an Instance's
// fields. It is implemented by a swiss.Map-backed table in the vm package;
// declaring it as an interface here keeps lang/value free of the
// third-party dependency while still letting the collector iterate entries
// generically during tracing.
type AttrTable interface {
	Get(name string) (Value, bool)
	Set(name string, v Value)
	Each(func(name string, v Value))
}

// Class is a class declaration's runtime value.
type Class struct {
	head Header

	Name    string
	Methods AttrTable
}

var _ Tracer = (*Class)(nil)

func NewClass(name string, methods AttrTable, size int) *Class {
	return &Class{head: NewHeader(ObjClass, size), Name: name, Methods: methods}
}

func (c *Class) Header() *Header { return &c.head }
func (c *Class) String() string  { return c.Name }
func (c *Class) TraceChildren(markValue func(Value), markObject func(Object)) {
	c.Methods.Each(func(_ string, v Value) { markValue(v) })
}

// Instance is an instantiated Class.
type Instance struct {
	head Header

	Class  *Class
	Fields AttrTable
}

var _ Tracer = (*Instance)(nil)

func NewInstance(class *Class, fields AttrTable, size int) *Instance {
	return &Instance{head: NewHeader(ObjInstance, size), Class: class, Fields: fields}
}

func (i *Instance) Header() *Header { return &i.head }
func (i *Instance) String() string  { return i.Class.Name + " instance" }
func (i *Instance) TraceChildren(markValue func(Value), markObject func(Object)) {
	markObject(i.Class)
	i.Fields.Each(func(_ string, v Value) { markValue(v) })
}

// BoundMethod pairs a receiver instance with one of its class's closures;
// produced by a property access that resolves to a method rather than a
// field.
type BoundMethod struct {
	head Header

	Receiver Value
	Method   *Closure
}

var _ Tracer = (*BoundMethod)(nil)

func NewBoundMethod(receiver Value, method *Closure, size int) *BoundMethod {
	return &BoundMethod{head: NewHeader(ObjBoundMethod, size), Receiver: receiver, Method: method}
}

func (b *BoundMethod) Header() *Header { return &b.head }
func (b *BoundMethod) String() string  { return b.Method.String() }
func (b *BoundMethod) TraceChildren(markValue func(Value), markObject func(Object)) {
	markValue(b.Receiver)
	markObject(b.Method)
}
