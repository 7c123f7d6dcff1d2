// Package repository keeps the outcomes of the search starts of one solve
// and ranks them.
package repository

import (
	"context"

	"github.com/okian/talksched/internal/solver"
)

// Entry is a ranked start outcome. Rank 1 is the winner.
type Entry struct {
	Rank    int
	Outcome solver.Outcome
}

// Store provides read/write access to start outcomes.
type Store interface {
	// Put records the outcome of a start. It returns true when the outcome
	// is the new winner.
	Put(ctx context.Context, o solver.Outcome) (bool, error)

	// Best returns the winning outcome, or ErrNotFound when no start has
	// finished.
	Best(ctx context.Context) (solver.Outcome, error)

	// TopN returns up to n entries, winner first.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of recorded starts.
	Count(ctx context.Context) int
}
