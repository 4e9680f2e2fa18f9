package value_test

import (
	"testing"

	"github.com/loxscript/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
)

func TestTruth(t *testing.T) {
	assert.False(t, value.Nil.Truth())
	assert.False(t, value.False.Truth())
	assert.True(t, value.True.Truth())
	assert.True(t, value.Number(0).Truth(), "0 is truthy per spec")
	assert.True(t, value.Number(1).Truth())
}

func TestEqual(t *testing.T) {
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.False(t, value.Equal(value.Nil, value.False))
}

func TestStringIdentity(t *testing.T) {
	a := value.NewString("ab", value.HashFNV1a([]byte("ab")), 2)
	b := value.NewString("ab", value.HashFNV1a([]byte("ab")), 2)
	// Two distinct String objects with equal content are NOT pointer-equal;
	// the heap's intern table is what guarantees they are the same object in
	// practice, exercised in lang/heap tests.
	assert.False(t, value.Equal(value.Obj(a), value.Obj(b)))
	assert.True(t, value.Equal(value.Obj(a), value.Obj(a)))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "7", value.Number(7).String())
	assert.Equal(t, "1.5", value.Number(1.5).String())
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "nil", value.Nil.TypeName())
	assert.Equal(t, "boolean", value.True.TypeName())
	assert.Equal(t, "number", value.Number(1).TypeName())
	s := value.NewString("x", 0, 1)
	assert.Equal(t, "string", value.Obj(s).TypeName())
}
