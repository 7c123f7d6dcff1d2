// Package scoring computes hard/soft scores of schedule assignments, in
// full or incrementally per move.
package scoring

import (
	"cmp"
	"fmt"
)

// Score is a lexicographic hard/soft pair. Both parts are zero or negative;
// zero means no violations.
type Score struct {
	Hard int
	Soft int
}

// Add returns s + o.
func (s Score) Add(o Score) Score { return Score{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft} }

// Sub returns s - o.
func (s Score) Sub(o Score) Score { return Score{Hard: s.Hard - o.Hard, Soft: s.Soft - o.Soft} }

// Compare orders by Hard first, then Soft. Greater is better.
func (s Score) Compare(o Score) int {
	return cmp.Or(cmp.Compare(s.Hard, o.Hard), cmp.Compare(s.Soft, o.Soft))
}

// Better reports whether s is strictly better than o.
func (s Score) Better(o Score) bool { return s.Compare(o) > 0 }

// Feasible reports whether no hard constraint is violated.
func (s Score) Feasible() bool { return s.Hard == 0 }

// String formats the score as "-1hard/-3soft".
func (s Score) String() string { return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft) }
