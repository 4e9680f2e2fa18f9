package vm

import (
	"github.com/dolthub/swiss"

	"github.com/loxscript/loxvm/lang/value"
)

// AttrTable is the swiss-backed value.AttrTable used for globals, class
// method tables, and instance field tables. A hand-rolled table keyed by
// *value.String already exists in lang/table, but that one's open-addressed
// probing and tombstone scheme are pinned to the string-intern set's own
// invariants; these tables have no such constraint and are better served by
// a general-purpose string-keyed map on top of dolthub/swiss instead of
// reusing the bytecode string table for this.
//
// Each keeps its own insertion-ordered key slice rather than iterating the
// swiss.Map directly, since swiss.Map exposes no iteration method in this
// fork. Names are only ever added to a globals/methods/fields table, never
// removed, so a plain append-only slice is enough to drive GC tracing and
// the Each callback in a stable order.
type AttrTable struct {
	m    *swiss.Map[string, value.Value]
	keys []string
}

var _ value.AttrTable = (*AttrTable)(nil)

// NewAttrTable returns an AttrTable with initial capacity for at least size
// entries.
func NewAttrTable(size int) *AttrTable {
	return &AttrTable{m: swiss.NewMap[string, value.Value](uint32(size))}
}

func (t *AttrTable) Get(name string) (value.Value, bool) { return t.m.Get(name) }

func (t *AttrTable) Set(name string, v value.Value) {
	if _, exists := t.m.Get(name); !exists {
		t.keys = append(t.keys, name)
	}
	t.m.Put(name, v)
}

func (t *AttrTable) Each(fn func(name string, v value.Value)) {
	for _, k := range t.keys {
		if v, ok := t.m.Get(k); ok {
			fn(k, v)
		}
	}
}
