package table_test

import (
	"testing"

	"github.com/loxscript/loxvm/lang/table"
	"github.com/loxscript/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *value.String {
	return value.NewString(s, value.HashFNV1a([]byte(s)), len(s))
}

func TestSetGetDelete(t *testing.T) {
	tbl := table.New()
	k := str("name")

	_, ok := tbl.Get(k)
	assert.False(t, ok)

	isNew := tbl.Set(k, value.Number(1))
	assert.True(t, isNew)

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, value.Number(1), v)

	isNew = tbl.Set(k, value.Number(2))
	assert.False(t, isNew, "overwriting an existing key is not a new insert")

	require.True(t, tbl.Delete(k))
	_, ok = tbl.Get(k)
	assert.False(t, ok)
	assert.False(t, tbl.Delete(k), "deleting twice reports not found")
}

func TestTombstoneReused(t *testing.T) {
	tbl := table.New()
	a, b := str("a"), str("b")
	tbl.Set(a, value.Number(1))
	tbl.Delete(a)
	tbl.Set(b, value.Number(2))

	v, ok := tbl.Get(b)
	require.True(t, ok)
	assert.Equal(t, value.Number(2), v)
}

func TestGrowthPreservesEntries(t *testing.T) {
	tbl := table.New()
	keys := make([]*value.String, 0, 64)
	for i := 0; i < 64; i++ {
		k := str(string(rune('a'+i%26)) + string(rune(i)))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		assert.Equal(t, value.Number(float64(i)), v)
	}
	assert.Equal(t, 64, tbl.Count())
}

func TestFindString(t *testing.T) {
	tbl := table.New()
	k := str("hello")
	tbl.Set(k, value.Nil)

	found := tbl.FindString("hello", value.HashFNV1a([]byte("hello")))
	assert.Same(t, k, found)

	assert.Nil(t, tbl.FindString("nope", value.HashFNV1a([]byte("nope"))))
}

func TestRemoveUnmarked(t *testing.T) {
	tbl := table.New()
	marked := str("marked")
	unmarked := str("unmarked")
	marked.Header().SetMarked(true)

	tbl.Set(marked, value.Nil)
	tbl.Set(unmarked, value.Nil)

	tbl.RemoveUnmarked()

	_, ok := tbl.Get(marked)
	assert.True(t, ok)
	_, ok = tbl.Get(unmarked)
	assert.False(t, ok)
}

func TestEach(t *testing.T) {
	tbl := table.New()
	tbl.Set(str("a"), value.Number(1))
	tbl.Set(str("b"), value.Number(2))

	seen := map[string]float64{}
	tbl.Each(func(k *value.String, v value.Value) {
		seen[k.Chars] = v.AsNumber()
	})
	assert.Equal(t, map[string]float64{"a": 1, "b": 2}, seen)
}
