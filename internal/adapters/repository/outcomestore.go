package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/okian/talksched/internal/solver"
)

// OutcomeStore is an in-memory Store. Outcomes are ordered by
// solver.Outcome.Better: better score first, then lower start index.
type OutcomeStore struct {
	mu       sync.RWMutex
	outcomes []solver.Outcome // ranked, winner first
	retain   int
}

// NewOutcomeStore creates an empty store.
func NewOutcomeStore(opts ...Option) *OutcomeStore {
	s := &OutcomeStore{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put inserts o at its rank. A repeated start index replaces the previous
// outcome of that start.
func (s *OutcomeStore) Put(ctx context.Context, o solver.Outcome) (bool, error) { //nolint:gocritic // hugeParam: outcomes are stored by value
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("put start %d: %w", o.Start, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes = lo.Reject(s.outcomes, func(x solver.Outcome, _ int) bool { return x.Start == o.Start })
	i, _ := slices.BinarySearchFunc(s.outcomes, o, func(x, target solver.Outcome) int {
		if x.Better(target) {
			return -1
		}
		return 1
	})
	s.outcomes = slices.Insert(s.outcomes, i, o)
	if s.retain > 0 && len(s.outcomes) > s.retain {
		s.outcomes = s.outcomes[:s.retain]
	}
	return i == 0, nil
}

// Best returns the winner.
func (s *OutcomeStore) Best(_ context.Context) (solver.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.outcomes) == 0 {
		return solver.Outcome{}, ErrNotFound
	}
	return s.outcomes[0], nil
}

// TopN returns the first n entries.
func (s *OutcomeStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n = min(n, len(s.outcomes))
	return lo.Map(s.outcomes[:n], func(o solver.Outcome, i int) Entry {
		return Entry{Rank: i + 1, Outcome: o}
	}), nil
}

// Count returns the number of kept outcomes.
func (s *OutcomeStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}
