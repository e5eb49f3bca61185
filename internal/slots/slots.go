// Package slots provides the fixed capacity texture slot table used while
// building one draw call.
package slots

// Capacity is the number of texture slots available to one draw call.
const Capacity = 32

// Table maps keys to dense slot indices in [0, Capacity).
//
// Lookups first compare against the key that was resolved last, which is
// the common case when consecutive quads share an image. Otherwise the
// occupied slots are scanned linearly; with at most Capacity entries this
// is cheaper than hashing.
//
// The zero value is an empty table. A Table is not safe for concurrent use.
type Table[K comparable] struct {
	keys [Capacity]K
	n    int

	last     K
	lastSlot int
	hasLast  bool

	// Statistics
	fastHits uint64
	scanHits uint64
}

// Acquire returns the slot for k, allocating the next free slot when k is
// new. ok is false when k is new and the table is full; the table is left
// unchanged in that case and the caller is expected to flush and Reset.
func (t *Table[K]) Acquire(k K) (slot int, ok bool) {
	if t.hasLast && t.last == k {
		t.fastHits++
		return t.lastSlot, true
	}
	for i := 0; i < t.n; i++ {
		if t.keys[i] == k {
			t.scanHits++
			t.remember(k, i)
			return i, true
		}
	}
	if t.n == Capacity {
		return -1, false
	}
	slot = t.n
	t.keys[slot] = k
	t.n++
	t.remember(k, slot)
	return slot, true
}

func (t *Table[K]) remember(k K, slot int) {
	t.last = k
	t.lastSlot = slot
	t.hasLast = true
}

// Reset empties the table. Statistics are kept.
func (t *Table[K]) Reset() {
	var zero K
	for i := 0; i < t.n; i++ {
		t.keys[i] = zero
	}
	t.n = 0
	t.last = zero
	t.hasLast = false
}

// Len returns the number of occupied slots.
func (t *Table[K]) Len() int { return t.n }

// Full reports whether every slot is occupied.
func (t *Table[K]) Full() bool { return t.n == Capacity }

// Keys returns the occupied slots in slot order. The slice aliases the
// table and is valid until the next Acquire or Reset.
func (t *Table[K]) Keys() []K { return t.keys[:t.n] }

// FastHits returns how many lookups were answered by the last-key check.
func (t *Table[K]) FastHits() uint64 { return t.fastHits }

// ScanHits returns how many lookups found an existing slot by scanning.
func (t *Table[K]) ScanHits() uint64 { return t.scanHits }
