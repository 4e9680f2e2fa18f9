// Package table implements an open-addressed, linear-probing hash table
// used by lang/heap for the string intern set. Its exact probing/tombstone
// behavior is what lets the collector treat intern-set membership as a
// weak reference.
package table

import "github.com/loxscript/loxvm/lang/value"

const maxLoad = 0.75

// entry is a single slot. A nil Key with a zero Value is an empty slot; a
// nil Key with Value.Truth()==true is a tombstone.
type entry struct {
	key *value.String
	val value.Value
}

func (e entry) isTombstone() bool {
	return e.key == nil && !e.val.IsNil()
}

func (e entry) isEmpty() bool {
	return e.key == nil && e.val.IsNil()
}

// Table is an open-addressed table: capacity always a power of two, 0.75
// load-factor threshold, tombstones left by deletion that count toward
// load but are reused by inserts.
type Table struct {
	entries []entry
	count   int // live entries + tombstones
}

// New returns an empty Table.
func New() *Table { return &Table{} }

// Count returns the number of live (non-tombstone) entries. It is O(n); used
// by tests and diagnostics, not the hot path.
func (t *Table) Count() int {
	n := 0
	for _, e := range t.entries {
		if e.key != nil {
			n++
		}
	}
	return n
}

// Get returns the value stored for key, if present.
func (t *Table) Get(key *value.String) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	e := &t.entries[t.findEntry(key)]
	if e.key == nil {
		return value.Nil, false
	}
	return e.val, true
}

// Set stores v for key, growing the table first if needed. It reports
// whether this inserted a brand new key (as opposed to overwriting one).
func (t *Table) Set(key *value.String, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}
	e := &t.entries[t.findEntry(key)]
	isNew := e.key == nil
	if isNew && e.val.IsNil() {
		// brand new slot, not a reused tombstone
		t.count++
	}
	e.key = key
	e.val = v
	return isNew
}

// Delete removes key, leaving a tombstone in its place.
func (t *Table) Delete(key *value.String) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := &t.entries[t.findEntry(key)]
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.True // tombstone marker
	return true
}

// FindString is the probe used by string interning: it compares candidate
// keys by hash, length, and byte content, without needing an
// already-interned *value.String to compare against.
func (t *Table) FindString(chars string, hash uint32) *value.String {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		switch {
		case e.isEmpty():
			return nil
		case e.key != nil && e.key.Hash == hash && e.key.Chars == chars:
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// Each calls fn for every live entry, for tests and diagnostics. The
// collector's weak-reference sweep uses RemoveUnmarked instead.
func (t *Table) Each(fn func(key *value.String, v value.Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.val)
		}
	}
}

// RemoveUnmarked deletes every live entry whose key is not marked. This
// must run before the general sweep, since the intern table holds only
// weak references to its keys.
func (t *Table) RemoveUnmarked() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.Header().Marked() {
			e.key = nil
			e.val = value.True
		}
	}
}

func (t *Table) findEntry(key *value.String) uint32 {
	mask := uint32(len(t.entries) - 1)
	idx := key.Hash & mask
	var tombstone *uint32
	for {
		e := &t.entries[idx]
		switch {
		case e.key == nil:
			if e.val.IsNil() {
				// empty slot: return the first tombstone seen, if any, else here
				if tombstone != nil {
					return *tombstone
				}
				return idx
			}
			if tombstone == nil {
				i := idx
				tombstone = &i
			}
		case e.key == key:
			return idx
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		dst := &t.entries[t.findEntry(e.key)]
		dst.key = e.key
		dst.val = e.val
		t.count++
	}
}
