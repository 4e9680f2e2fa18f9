package heap_test

import (
	"testing"

	"github.com/loxscript/loxvm/lang/heap"
	"github.com/loxscript/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStringInterns(t *testing.T) {
	h := heap.New()
	a := h.NewString("hello")
	b := h.NewString("hello")
	assert.Same(t, a, b)

	c := h.NewString("world")
	assert.NotSame(t, a, c)
}

func TestCollectFreesUnreachable(t *testing.T) {
	h := heap.New()
	h.NewString("garbage")
	require.Greater(t, h.BytesAllocated(), int64(0))

	freed := 0
	h.OnCollect = func(n int, _ int64) { freed = n }
	h.Collect()

	assert.Equal(t, 1, freed)
	assert.Equal(t, int64(0), h.BytesAllocated())
}

func TestRootProviderKeepsStringAlive(t *testing.T) {
	h := heap.New()
	kept := h.NewString("kept")
	h.NewString("garbage")

	h.AddRootProvider(func(mark func(value.Value)) {
		mark(value.Obj(kept))
	})

	freed := 0
	h.OnCollect = func(n int, _ int64) { freed = n }
	h.Collect()

	assert.Equal(t, 1, freed, "only the unrooted string should be collected")
	assert.Same(t, kept, h.NewString("kept"), "root survives and is still the canonical intern")
}

func TestCollectTracesClosureToFunction(t *testing.T) {
	h := heap.New()
	fn := h.NewFunction("f", 0, 0, fakeChunk{})
	closure := h.NewClosure(fn, nil)

	h.AddRootProvider(func(mark func(value.Value)) {
		mark(value.Obj(closure))
	})

	before := h.BytesAllocated()
	h.Collect()
	assert.Equal(t, before, h.BytesAllocated(), "closure and its function both survive")
}

func TestCollectUnmarksSurvivorsForNextCycle(t *testing.T) {
	h := heap.New()
	s := h.NewString("persistent")
	h.AddRootProvider(func(mark func(value.Value)) {
		mark(value.Obj(s))
	})

	h.Collect()
	assert.False(t, s.Header().Marked())
	h.Collect()
	assert.False(t, s.Header().Marked())
}

func TestFreeAllZeroesAllocated(t *testing.T) {
	h := heap.New()
	h.NewString("a")
	h.NewString("b")
	require.Greater(t, h.BytesAllocated(), int64(0))

	h.FreeAll()
	assert.Equal(t, int64(0), h.BytesAllocated())

	// interning after FreeAll works on a fresh table, not stale entries.
	assert.Equal(t, "a", h.NewString("a").Chars)
}

func TestStressGCCollectsOnEveryAllocation(t *testing.T) {
	h := heap.New()
	h.StressGC = true
	collections := 0
	h.OnCollect = func(int, int64) { collections++ }

	h.NewString("one")
	h.NewString("two")

	assert.Equal(t, 2, collections)
}

func TestAddRootProviderRemoveStopsMarking(t *testing.T) {
	h := heap.New()
	kept := h.NewString("kept")

	remove := h.AddRootProvider(func(mark func(value.Value)) {
		mark(value.Obj(kept))
	})
	remove()

	freed := 0
	h.OnCollect = func(n int, _ int64) { freed = n }
	h.Collect()

	assert.Equal(t, 1, freed, "the provider was removed, so its root no longer survives collection")
}

type fakeChunk struct{}

func (fakeChunk) Disassemble(name string) string        { return "" }
func (fakeChunk) TraceConstants(mark func(value.Value)) {}
