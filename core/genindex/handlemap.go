package genindex

// HandleMap pairs a Pool with a slot-indexed value array, giving an
// insert/erase/get map whose keys remain ABA-safe across reuse. It is the
// Go generalization of the typed DynamicArray<V> the source keeps alongside
// each GenIndexPool.
type HandleMap[V any] struct {
	pool   *Pool
	values []V
}

// NewHandleMap returns an empty handle map.
func NewHandleMap[V any]() *HandleMap[V] {
	var zero V
	return &HandleMap[V]{pool: NewPool(), values: []V{zero}}
}

// Insert generates a fresh handle for v and returns it.
func (m *HandleMap[V]) Insert(v V) GenIndex {
	k := m.pool.Generate()
	if int(k.Slot) >= len(m.values) {
		grown := make([]V, k.Slot+1)
		copy(grown, m.values)
		m.values = grown
	}
	m.values[k.Slot] = v
	return k
}

// Erase retires k and clears its stored value. Erasing a handle that is not
// currently live is a no-op.
func (m *HandleMap[V]) Erase(k GenIndex) {
	if !m.pool.Contains(k) {
		return
	}
	var zero V
	m.values[k.Slot] = zero
	m.pool.Erase(k)
}

// Set overwrites the value stored under k in place, without touching the
// pool, so the handle's slot/generation never changes. It reports whether k
// was live; setting a retired handle is a no-op.
func (m *HandleMap[V]) Set(k GenIndex, v V) bool {
	if !m.pool.Contains(k) {
		return false
	}
	m.values[k.Slot] = v
	return true
}

// Get returns the value associated with k and whether k is currently live.
func (m *HandleMap[V]) Get(k GenIndex) (V, bool) {
	if !m.pool.Contains(k) {
		var zero V
		return zero, false
	}
	return m.values[k.Slot], true
}

// Contains reports whether k is currently live in the map.
func (m *HandleMap[V]) Contains(k GenIndex) bool { return m.pool.Contains(k) }

// Len returns the number of live entries.
func (m *HandleMap[V]) Len() int { return m.pool.Len() }

// Clear empties the map, releasing all handles.
func (m *HandleMap[V]) Clear() {
	m.pool.Clear()
	m.values = m.values[:1]
}

// Each invokes fn for every live (handle, value) pair, in slot order.
func (m *HandleMap[V]) Each(fn func(GenIndex, V)) {
	m.pool.Each(func(k GenIndex) { fn(k, m.values[k.Slot]) })
}
