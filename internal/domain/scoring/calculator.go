package scoring

import (
	"slices"

	"github.com/okian/talksched/internal/domain/model"
	"github.com/okian/talksched/internal/domain/schedule"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights replaces the built-in constraints with ones weighted by w.
func WithWeights(w Weights) Option {
	return func(c *Calculator) {
		c.constraints = DefaultConstraints(w)
	}
}

// WithConstraints appends extra constraints after the built-in ones.
func WithConstraints(extra ...Constraint) Option {
	return func(c *Calculator) {
		c.extra = append(c.extra, extra...)
	}
}

// Calculator scores assignments of one instance. It holds no assignment
// state and is safe for concurrent use.
type Calculator struct {
	inst        *model.Instance
	constraints []Constraint
	extra       []Constraint

	// active constraint indices by evaluation path; zero weights are skipped
	unary  []int
	slot   []int
	track  []int
	global []int
}

// New creates a Calculator for inst with the default weights unless
// overridden by options.
func New(inst *model.Instance, opts ...Option) *Calculator {
	c := &Calculator{
		inst:        inst,
		constraints: DefaultConstraints(DefaultWeights()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.constraints = append(c.constraints, c.extra...)
	c.extra = nil

	for i, k := range c.constraints {
		if k.Weight == 0 {
			continue
		}
		switch {
		case k.Unary != nil:
			c.unary = append(c.unary, i)
		case k.Pair == nil:
		case k.Scope == ScopeSlot:
			c.slot = append(c.slot, i)
		case k.Scope == ScopeTrack:
			c.track = append(c.track, i)
		default:
			c.global = append(c.global, i)
		}
	}
	return c
}

// Constraints returns the evaluated constraints in order.
func (c *Calculator) Constraints() []Constraint { return c.constraints }

func (c *Calculator) add(s *Score, i, count int) {
	if count == 0 {
		return
	}
	k := &c.constraints[i]
	if k.Kind == Hard {
		s.Hard -= k.Weight * count
	} else {
		s.Soft -= k.Weight * count
	}
}

func place(a *schedule.Assignment, t int) Placement {
	return Placement{Talk: t, Slot: a.Slot(t), Room: a.Room(t)}
}

// Full scores the assignment from scratch.
func (c *Calculator) Full(a *schedule.Assignment) Score {
	var s Score
	c.visit(a, func(i int, _ []int, count int) { c.add(&s, i, count) })
	return s
}

// visit calls fn for every non-zero violation count in a. talks holds the
// involved talk indices and is reused between calls.
func (c *Calculator) visit(a *schedule.Assignment, fn func(i int, talks []int, count int)) {
	in := c.inst
	buf := make([]int, 0, 2)
	pairs := func(ids []int, idx []int) {
		for x := 0; x < len(ids); x++ {
			px := place(a, ids[x])
			for y := x + 1; y < len(ids); y++ {
				py := place(a, ids[y])
				for _, i := range idx {
					if n := c.constraints[i].Pair(in, px, py); n != 0 {
						fn(i, append(buf[:0], px.Talk, py.Talk), n)
					}
				}
			}
		}
	}

	placed := make([]int, 0, a.NumPlaced())
	for t := 0; t < in.NumTalks(); t++ {
		if !a.Placed(t) {
			continue
		}
		placed = append(placed, t)
		p := place(a, t)
		for _, i := range c.unary {
			if n := c.constraints[i].Unary(in, p); n != 0 {
				fn(i, append(buf[:0], t), n)
			}
		}
	}
	if len(c.slot) > 0 {
		for s := 0; s < in.NumSlots(); s++ {
			ids := slices.Clone(a.SlotTalks(s))
			slices.Sort(ids)
			pairs(ids, c.slot)
		}
	}
	if len(c.track) > 0 {
		for k := 0; k < in.NumTracks(); k++ {
			ids := slices.DeleteFunc(slices.Clone(in.Track(k).Members), func(t int) bool { return !a.Placed(t) })
			pairs(ids, c.track)
		}
	}
	if len(c.global) > 0 {
		pairs(placed, c.global)
	}
}

// contribution is the score of every term involving talk t at p, with all
// other talks where a has them. t's own current cell is ignored.
func (c *Calculator) contribution(a *schedule.Assignment, t int, p Placement) Score {
	var s Score
	if p.Slot == schedule.Unassigned {
		return s
	}
	in := c.inst
	for _, i := range c.unary {
		c.add(&s, i, c.constraints[i].Unary(in, p))
	}
	if len(c.slot) > 0 {
		for _, u := range a.SlotTalks(p.Slot) {
			if u == t {
				continue
			}
			pu := place(a, u)
			for _, i := range c.slot {
				c.add(&s, i, c.constraints[i].Pair(in, p, pu))
			}
		}
	}
	if len(c.track) > 0 {
		for _, u := range in.Track(in.Talk(t).Track).Members {
			if u == t || !a.Placed(u) {
				continue
			}
			pu := place(a, u)
			for _, i := range c.track {
				c.add(&s, i, c.constraints[i].Pair(in, p, pu))
			}
		}
	}
	if len(c.global) > 0 {
		for u := 0; u < in.NumTalks(); u++ {
			if u == t || !a.Placed(u) {
				continue
			}
			pu := place(a, u)
			for _, i := range c.global {
				c.add(&s, i, c.constraints[i].Pair(in, p, pu))
			}
		}
	}
	return s
}

// reassignDelta is the score change of moving t to (slot, room).
func (c *Calculator) reassignDelta(a *schedule.Assignment, t, slot, room int) Score {
	to := Placement{Talk: t, Slot: slot, Room: room}
	if slot == schedule.Unassigned || room == schedule.Unassigned {
		to.Slot, to.Room = schedule.Unassigned, schedule.Unassigned
	}
	return c.contribution(a, t, to).Sub(c.contribution(a, t, place(a, t)))
}

// Delta returns the score change m would cause without rescanning the
// assignment. Swaps are evaluated by tentatively applying the first half
// and reverting it, so a is briefly mutated but left as it was.
func (c *Calculator) Delta(a *schedule.Assignment, m schedule.Move) Score {
	if m.Kind != schedule.KindSwap {
		return c.reassignDelta(a, m.A, m.Slot, m.Room)
	}
	if m.A == m.B {
		return Score{}
	}
	sa, ra := a.Slot(m.A), a.Room(m.A)
	sb, rb := a.Slot(m.B), a.Room(m.B)
	d := c.reassignDelta(a, m.A, sb, rb)
	a.Assign(m.A, sb, rb)
	d = d.Add(c.reassignDelta(a, m.B, sa, ra))
	a.Assign(m.A, sa, ra)
	return d
}

// PlacementDelta is the score change of placing unplaced talk t in
// (slot, room). It is the building block of construction and exact search.
func (c *Calculator) PlacementDelta(a *schedule.Assignment, t, slot, room int) Score {
	return c.contribution(a, t, Placement{Talk: t, Slot: slot, Room: room})
}

// Violation is one hard constraint match.
type Violation struct {
	Constraint string
	Talks      []int
}

// Explanation breaks a score down by constraint.
type Explanation struct {
	Score      Score
	Breakdown  map[string]int
	Violations []Violation
}

// Explain scores a in full and lists every hard violation.
func (c *Calculator) Explain(a *schedule.Assignment) Explanation {
	e := Explanation{Breakdown: make(map[string]int, len(c.constraints))}
	for _, k := range c.constraints {
		e.Breakdown[k.Name] = 0
	}
	c.visit(a, func(i int, talks []int, count int) {
		k := c.constraints[i]
		var s Score
		c.add(&s, i, count)
		e.Score = e.Score.Add(s)
		e.Breakdown[k.Name] += s.Hard + s.Soft
		if k.Kind == Hard {
			e.Violations = append(e.Violations, Violation{Constraint: k.Name, Talks: slices.Clone(talks)})
		}
	})
	return e
}
