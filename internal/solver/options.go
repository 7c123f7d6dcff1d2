// Package solver drives the search for a schedule: construction, local
// search with simulated annealing and tabu memory, or exact branch and
// bound.
package solver

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/talksched/internal/domain/scoring"
)

// ErrInvalidOptions is returned when Options fail validation.
var ErrInvalidOptions = errors.New("invalid solver options")

// Mode selects the search strategy.
type Mode string

// Search modes.
const (
	ModeHeuristic Mode = "heuristic"
	ModeExact     Mode = "exact"
)

// Options configures one search start.
type Options struct {
	Mode Mode
	// TimeLimit caps one start. Callers running several starts bound them
	// together through the context.
	TimeLimit time.Duration
	Seed      int64

	// StagnationWindow is the number of iterations without a new best
	// after which a feasible search converges.
	StagnationWindow int64
	SampleSize       int
	ExhaustiveLimit  int

	TabuTenure     int
	TabuTenureRand int

	// Temperature starts at TempHigh, is multiplied by Cooling every
	// iteration and drops to zero once below TempLow.
	TempHigh float64
	TempLow  float64
	Cooling  float64

	// HardScale converts hard points to soft points for annealing.
	HardScale int

	ExactNodeLimit int64
	Weights        scoring.Weights
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Mode:             ModeHeuristic,
		TimeLimit:        30 * time.Second,
		Seed:             42,
		StagnationWindow: 2000,
		SampleSize:       64,
		ExhaustiveLimit:  4096,
		TabuTenure:       7,
		TabuTenureRand:   3,
		TempHigh:         2.0,
		TempLow:          0.01,
		Cooling:          0.999,
		HardScale:        100,
		ExactNodeLimit:   5_000_000,
		Weights:          scoring.DefaultWeights(),
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	switch {
	case o.Mode != ModeHeuristic && o.Mode != ModeExact:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidOptions, o.Mode)
	case o.TimeLimit <= 0:
		return fmt.Errorf("%w: time limit must be positive", ErrInvalidOptions)
	case o.StagnationWindow <= 0:
		return fmt.Errorf("%w: stagnation window must be positive", ErrInvalidOptions)
	case o.SampleSize <= 0:
		return fmt.Errorf("%w: sample size must be positive", ErrInvalidOptions)
	case o.ExhaustiveLimit < 0:
		return fmt.Errorf("%w: exhaustive limit must not be negative", ErrInvalidOptions)
	case o.TabuTenure < 0 || o.TabuTenureRand < 0:
		return fmt.Errorf("%w: tabu tenure must not be negative", ErrInvalidOptions)
	case o.TempLow <= 0 || o.TempLow > o.TempHigh:
		return fmt.Errorf("%w: temperatures need 0 < temp_low <= temp_high", ErrInvalidOptions)
	case o.Cooling <= 0 || o.Cooling > 1:
		return fmt.Errorf("%w: cooling must be in (0, 1]", ErrInvalidOptions)
	case o.Cooling == 1 && o.TabuTenure == 0 && o.TabuTenureRand == 0:
		return fmt.Errorf("%w: cooling 1 needs a tabu tenure", ErrInvalidOptions)
	case o.HardScale <= 0:
		return fmt.Errorf("%w: hard scale must be positive", ErrInvalidOptions)
	case o.ExactNodeLimit <= 0:
		return fmt.Errorf("%w: exact node limit must be positive", ErrInvalidOptions)
	}
	if _, err := scoring.WeightsFromMap(o.Weights.Map()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}
