package repository

// Option applies a configuration option to the OutcomeStore.
type Option func(*OutcomeStore)

// WithRetain bounds how many outcomes are kept. Outcomes ranked below the
// bound are dropped; the winner is always kept.
func WithRetain(n int) Option {
	return func(s *OutcomeStore) {
		if n > 0 {
			s.retain = n
		}
	}
}
