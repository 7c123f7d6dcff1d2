package tabu

// Option applies a configuration option to the Memory.
type Option func(*ringMemory)

// WithCapacity sets how many entries the ring remembers. Values below the
// minimum of 8 are raised to it.
func WithCapacity(capacity int) Option {
	return func(m *ringMemory) {
		m.capacity = capacity
	}
}

// CapacityFor sizes the ring for a tenure and its random extension, the
// same way the search does.
func CapacityFor(tenure, tenureRand int) int {
	return max(32, (tenure+tenureRand)*4)
}
