// Package value implements the uniform Value representation used by the
// compiler's constant pool and the VM's stacks, together with the heap
// Object kinds that a Value may point to. Value and Object live in one
// package because, like clox's value.h/object.h pair, they are mutually
// referential: a Value may hold an Object, and several Object kinds hold
// Values (closures over constants, instance fields, and so on).
//
// A tagged struct is used rather than a NaN-boxed 64-bit word: Go has no
// portable way to stash a pointer in a float64's payload bits without
// `unsafe`, and a tagged representation is the one every comparable Go
// implementation reaches for instead (interfaces or tagged structs, never
// bit-packed floats).
package value

import "fmt"

// Kind discriminates the four cases a Value may hold.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObject
)

// Value is the uniform datum manipulated by the compiler and VM: nil, a
// boolean, an IEEE-754 double, or a pointer to a heap Object.
type Value struct {
	kind   Kind
	number float64
	obj    Object
}

// Nil is the singular nil Value.
var Nil = Value{kind: KindNil}

// True and False are the two boolean Values.
var (
	True  = Value{kind: KindBool, number: 1}
	False = Value{kind: KindBool, number: 0}
)

// Bool returns the Value for the boolean b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Number returns the Value wrapping the float64 n.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// Obj returns the Value wrapping the heap Object o.
func Obj(o Object) Value { return Value{kind: KindObject, obj: o} }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns the boolean held by v. The caller must have checked IsBool.
func (v Value) AsBool() bool { return v.number != 0 }

// AsNumber returns the float64 held by v. The caller must have checked
// IsNumber.
func (v Value) AsNumber() float64 { return v.number }

// AsObject returns the Object held by v. The caller must have checked
// IsObject.
func (v Value) AsObject() Object { return v.obj }

// Is reports whether v holds an Object of the given kind.
func (v Value) Is(k ObjKind) bool {
	return v.kind == KindObject && v.obj.Header().kind == k
}

// Truth reports a Value's boolean coercion: nil and false are falsey,
// everything else (including the number 0) is truthy.
func (v Value) Truth() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.AsBool()
	default:
		return true
	}
}

// Equal reports equality: nil==nil, booleans and numbers by value, objects
// by pointer identity (safe because strings are interned).
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindBool, KindNumber:
		return a.number == b.number
	case KindObject:
		return a.obj == b.obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.number)
	case KindObject:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	return fmt.Sprintf("%g", n)
}

// TypeName returns a short description of v's runtime type, used in error
// messages.
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObject:
		return v.obj.Header().kind.String()
	default:
		return "invalid"
	}
}
