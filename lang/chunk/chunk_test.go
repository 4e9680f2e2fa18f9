package chunk_test

import (
	"testing"

	"github.com/loxscript/loxvm/lang/chunk"
	"github.com/loxscript/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLineFor(t *testing.T) {
	c := chunk.New()
	c.Write(byte(chunk.OpNil), 1)
	c.Write(byte(chunk.OpTrue), 1)
	c.Write(byte(chunk.OpPop), 2)
	c.Write(byte(chunk.OpReturn), 2)

	assert.Equal(t, 1, c.LineFor(0))
	assert.Equal(t, 1, c.LineFor(1))
	assert.Equal(t, 2, c.LineFor(2))
	assert.Equal(t, 2, c.LineFor(3))
}

func TestAddConstant(t *testing.T) {
	c := chunk.New()
	idx := c.AddConstant(value.Number(42))
	require.Equal(t, 0, idx)
	assert.Equal(t, value.Number(42), c.Constants[0])

	idx2 := c.AddConstant(value.Number(7))
	assert.Equal(t, 1, idx2)
}

func TestDisassembleDoesNotPanic(t *testing.T) {
	c := chunk.New()
	idx := c.AddConstant(value.Number(1))
	c.Write(byte(chunk.OpConstant), 1)
	c.Write(byte(idx), 1)
	c.Write(byte(chunk.OpReturn), 1)

	out := c.Disassemble("test")
	assert.Contains(t, out, "OP_CONSTANT")
	assert.Contains(t, out, "OP_RETURN")
}
