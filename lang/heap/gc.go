package heap

import "github.com/loxscript/loxvm/lang/value"

// Collect runs one full tricolor mark-sweep cycle:
//
//  1. mark roots (every registered RootProvider)
//  2. trace references until the gray stack is empty
//  3. sweep the string intern set (weak references)
//  4. sweep every other unmarked heap object
//  5. grow the collection threshold
//
// Callers normally reach this indirectly through beforeAlloc; it is exported
// so tests can force a cycle unconditionally.
func (h *Heap) Collect() {
	for _, root := range h.roots {
		root(h.markValue)
	}
	h.traceReferences()
	h.sweepStrings()
	freed, freedBytes := h.sweepObjects()
	h.nextGC = h.allocated * growFactor
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}
	if h.OnCollect != nil {
		h.OnCollect(freed, freedBytes)
	}
}

// markValue marks v's Object, if it holds one, and does nothing otherwise.
func (h *Heap) markValue(v value.Value) {
	if v.IsObject() {
		h.markObject(v.AsObject())
	}
}

// markObject grays o: sets its mark bit and pushes it for later tracing. An
// already-marked object returns immediately, which both skips redundant
// work and breaks cycles in the object graph.
func (h *Heap) markObject(o value.Object) {
	if o == nil {
		return
	}
	hdr := o.Header()
	if hdr.Marked() {
		return
	}
	hdr.SetMarked(true)
	h.gray = append(h.gray, o)
}

// traceReferences blackens every gray object until none remain, popping from
// the worklist and tracing each one's children in turn.
func (h *Heap) traceReferences() {
	for len(h.gray) > 0 {
		n := len(h.gray) - 1
		o := h.gray[n]
		h.gray = h.gray[:n]
		if tracer, ok := o.(value.Tracer); ok {
			tracer.TraceChildren(h.markValue, h.markObject)
		}
	}
}

// sweepStrings removes intern-table entries whose key did not get marked
// during tracing, before the general sweep reclaims the String objects
// themselves. The intern table's references to strings are weak, so dead
// entries must be removed before the strings they point to are freed, or
// the table would hold dangling keys.
func (h *Heap) sweepStrings() {
	h.strings.RemoveUnmarked()
}

// sweepObjects walks the intrusive object list, freeing everything still
// unmarked and clearing the mark bit on survivors for the next cycle.
func (h *Heap) sweepObjects() (freed int, freedBytes int64) {
	var prev value.Object
	cur := h.objects
	for cur != nil {
		hdr := cur.Header()
		if hdr.Marked() {
			hdr.SetMarked(false)
			prev = cur
			cur = hdr.Next()
			continue
		}
		unreached := cur
		cur = hdr.Next()
		if prev == nil {
			h.objects = cur
		} else {
			prev.Header().SetNext(cur)
		}
		freed++
		freedBytes += int64(unreached.Header().Size())
		h.allocated -= int64(unreached.Header().Size())
	}
	return freed, freedBytes
}
