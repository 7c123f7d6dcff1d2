// Package tabu provides a bounded short-term memory of forbidden move
// attributes for local search.
package tabu

// Memory records keys that stay tabu until an expiry iteration. Capacity
// is bounded: when the ring is full the oldest entry is forgotten.
type Memory interface {
	// IsTabu reports whether key is still forbidden at iteration iter.
	IsTabu(key uint64, iter int64) bool

	// Add forbids key until (excluding) iteration expiry.
	Add(key uint64, expiry int64)
}

type entry struct {
	key uint64
	exp int64
	set bool
}

// ringMemory is not safe for concurrent use; each search start owns one.
type ringMemory struct {
	expires  map[uint64]int64
	ring     []entry
	next     int
	capacity int
}

const minCapacity = 8

// NewMemory creates a tabu memory with configuration options.
func NewMemory(opts ...Option) Memory {
	m := &ringMemory{capacity: 64}
	for _, opt := range opts {
		opt(m)
	}
	m.capacity = max(m.capacity, minCapacity)
	m.expires = make(map[uint64]int64, m.capacity*2)
	m.ring = make([]entry, m.capacity)
	return m
}

func (m *ringMemory) IsTabu(key uint64, iter int64) bool {
	exp, ok := m.expires[key]
	return ok && exp > iter
}

func (m *ringMemory) Add(key uint64, expiry int64) {
	old := m.ring[m.next]
	if old.set {
		// Only drop the map entry if it was not refreshed by a later Add.
		if cur, ok := m.expires[old.key]; ok && cur == old.exp {
			delete(m.expires, old.key)
		}
	}
	m.ring[m.next] = entry{key: key, exp: expiry, set: true}
	m.expires[key] = expiry

	m.next++
	if m.next == len(m.ring) {
		m.next = 0
	}
}

