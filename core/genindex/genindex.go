// Package genindex implements generation-tracked slot allocation: a stable
// 32-bit handle that pairs a reusable slot index with a generation counter,
// so a handle captured before its slot was recycled for something else is
// caught by Contains instead of silently aliasing the new occupant (the
// classic ABA problem for index-based references).
package genindex

// GenIndex is a generational handle: Slot identifies a position in a Pool's
// backing array, Gen is the number of times that slot has been recycled.
// Slot 0 is permanently reserved as the null sentinel.
type GenIndex struct {
	Slot uint32
	Gen  uint8
}

// IsNull reports whether g is the zero handle.
func (g GenIndex) IsNull() bool { return g.Slot == 0 }

// NullIndex is the zero handle, matching spec's NullHandle sentinel.
var NullIndex = GenIndex{}

// freeListEnd terminates the free list; chosen to match the 24-bit slot
// range the handle's bit-packed ancestor used, even though Go's GenIndex
// stores Slot in a full uint32.
const freeListEnd = uint32(1<<24) - 1

type slotEntry struct {
	gen    uint8
	active bool
	next   uint32 // valid only while the slot is free
}

// Pool allocates and recycles GenIndex handles. Generate, Contains and Erase
// are the only ways a caller should observe or mutate slot state; the zero
// Pool is not usable, construct with NewPool.
type Pool struct {
	slots    []slotEntry
	freeList uint32
	numFree  int
}

// NewPool returns an empty pool with slot 0 reserved as the null sentinel.
func NewPool() *Pool {
	return &Pool{
		slots:    []slotEntry{{gen: 0, active: false, next: freeListEnd}},
		freeList: freeListEnd,
	}
}

// Len returns the number of live (generated and not yet erased) handles.
func (p *Pool) Len() int {
	n := 0
	for i := 1; i < len(p.slots); i++ {
		if p.slots[i].active {
			n++
		}
	}
	return n
}

// RawLen returns the size of the backing slot array, including tombstoned
// and currently-free slots.
func (p *Pool) RawLen() int { return len(p.slots) }

// Generate allocates a new handle, recycling a free slot (bumping its
// generation) when one is available, otherwise growing the backing array.
func (p *Pool) Generate() GenIndex {
	var idx uint32
	if p.numFree > 0 {
		idx = p.freeList
		p.freeList = p.slots[idx].next
		p.slots[idx].active = true
		p.numFree--
	} else {
		idx = uint32(len(p.slots))
		p.slots = append(p.slots, slotEntry{gen: 0, active: true})
	}
	return GenIndex{Slot: idx, Gen: p.slots[idx].gen}
}

// Contains reports whether k refers to a currently live slot at its
// recorded generation.
func (p *Pool) Contains(k GenIndex) bool {
	if k.Slot == 0 || k.Slot >= uint32(len(p.slots)) {
		return false
	}
	s := &p.slots[k.Slot]
	return s.active && s.gen == k.Gen
}

// Erase retires k's slot. If the generation counter would wrap past 255 the
// slot is tombstoned permanently instead of returning to the free list, so
// a future Generate can never reissue a handle whose generation has already
// wrapped back to a value some stale caller might still hold.
func (p *Pool) Erase(k GenIndex) {
	if !p.Contains(k) {
		return
	}
	s := &p.slots[k.Slot]
	s.active = false
	s.gen++
	if s.gen != 0 {
		s.next = p.freeList
		p.freeList = k.Slot
		p.numFree++
	} else {
		s.next = freeListEnd
	}
}

// Clear resets the pool to empty, matching spec's GenIndexPool::clear.
func (p *Pool) Clear() {
	p.slots = p.slots[:1]
	p.freeList = freeListEnd
	p.numFree = 0
}

// Each invokes fn for every currently live handle, in slot order.
func (p *Pool) Each(fn func(GenIndex)) {
	for i := 1; i < len(p.slots); i++ {
		if p.slots[i].active {
			fn(GenIndex{Slot: uint32(i), Gen: p.slots[i].gen})
		}
	}
}

// Handle is a type-tagged GenIndex, the Go analogue of the source's
// Handle<T> : GenIndex inheritance trick. It carries no runtime value of T;
// T only distinguishes e.g. a MeshHandle from a BufferHandle at compile
// time.
type Handle[T any] struct {
	GenIndex
}

// NewHandle wraps a raw GenIndex as a Handle[T].
func NewHandle[T any](g GenIndex) Handle[T] { return Handle[T]{g} }

// NullHandle returns the zero handle for T.
func NullHandle[T any]() Handle[T] { return Handle[T]{} }
