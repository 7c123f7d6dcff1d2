// Package moves enumerates and samples the local search neighborhood of an
// assignment.
package moves

import (
	"math/rand"

	"github.com/okian/talksched/internal/domain/model"
	"github.com/okian/talksched/internal/domain/schedule"
)

const (
	defaultExhaustiveLimit = 4096
	defaultSampleSize      = 64
	sampleRetries          = 8
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithExhaustiveLimit sets the neighborhood size up to which every move is
// generated.
func WithExhaustiveLimit(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.exhaustiveLimit = n
		}
	}
}

// WithSampleSize sets how many moves are sampled from larger neighborhoods.
func WithSampleSize(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.sampleSize = n
		}
	}
}

// Generator produces reassign and swap moves. Talks without any allowed
// slot are never moved. Reassign targets are limited to the talk's allowed
// slots and occupied cells are valid targets. Only placed talks are
// reassigned; an unplaced talk enters the schedule by swapping with a
// placed one, so the number of placed talks never changes.
type Generator struct {
	inst            *model.Instance
	exhaustiveLimit int
	sampleSize      int
	movable         []int
}

// New creates a Generator for inst.
func New(inst *model.Instance, opts ...Option) *Generator {
	g := &Generator{
		inst:            inst,
		exhaustiveLimit: defaultExhaustiveLimit,
		sampleSize:      defaultSampleSize,
	}
	for _, opt := range opts {
		opt(g)
	}
	for t := 0; t < inst.NumTalks(); t++ {
		if !inst.Unplaceable(t) {
			g.movable = append(g.movable, t)
		}
	}
	return g
}

// Movable returns the talks the generator may move, ascending.
func (g *Generator) Movable() []int { return g.movable }

// Size is an upper bound of the neighborhood size of a.
func (g *Generator) Size(a *schedule.Assignment) int {
	rooms := g.inst.NumRooms()
	n := 0
	for _, t := range g.movable {
		n += len(g.inst.AllowedSlots(t)) * rooms
	}
	m := len(g.movable)
	return n + m*(m-1)/2
}

// Exhaustive reports whether a's neighborhood is small enough to enumerate.
func (g *Generator) Exhaustive(a *schedule.Assignment) bool {
	return g.Size(a) <= g.exhaustiveLimit
}

// Generate appends candidate moves for a to buf and returns it. Small
// neighborhoods are enumerated in a fixed order, larger ones are sampled
// uniformly with rng. An empty result means there is nothing to move.
func (g *Generator) Generate(a *schedule.Assignment, rng *rand.Rand, buf []schedule.Move) []schedule.Move {
	buf = buf[:0]
	if len(g.movable) == 0 || g.inst.NumRooms() == 0 {
		return buf
	}
	if g.Exhaustive(a) {
		return g.All(a, buf)
	}
	for i := 0; i < g.sampleSize; i++ {
		if m, ok := g.sample(a, rng); ok {
			buf = append(buf, m)
		}
	}
	return buf
}

// All appends every move of a's neighborhood to buf.
func (g *Generator) All(a *schedule.Assignment, buf []schedule.Move) []schedule.Move {
	rooms := g.inst.NumRooms()
	for _, t := range g.movable {
		if !a.Placed(t) {
			continue
		}
		for _, s := range g.inst.AllowedSlots(t) {
			for r := 0; r < rooms; r++ {
				if a.Slot(t) == s && a.Room(t) == r {
					continue
				}
				buf = append(buf, schedule.Reassign(t, s, r))
			}
		}
	}
	for i, x := range g.movable {
		for _, y := range g.movable[i+1:] {
			if g.swappable(a, x, y) {
				buf = append(buf, schedule.Swap(x, y))
			}
		}
	}
	return buf
}

// swappable rejects swaps that change nothing.
func (g *Generator) swappable(a *schedule.Assignment, x, y int) bool {
	if !a.Placed(x) && !a.Placed(y) {
		return false
	}
	return a.Slot(x) != a.Slot(y) || a.Room(x) != a.Room(y)
}

func (g *Generator) sample(a *schedule.Assignment, rng *rand.Rand) (schedule.Move, bool) {
	for try := 0; try < sampleRetries; try++ {
		x := g.movable[rng.Intn(len(g.movable))]
		if len(g.movable) == 1 || rng.Intn(2) == 0 {
			if !a.Placed(x) {
				continue
			}
			slots := g.inst.AllowedSlots(x)
			s, r := slots[rng.Intn(len(slots))], rng.Intn(g.inst.NumRooms())
			if a.Slot(x) == s && a.Room(x) == r {
				continue
			}
			return schedule.Reassign(x, s, r), true
		}
		y := g.movable[rng.Intn(len(g.movable))]
		if x == y || !g.swappable(a, x, y) {
			continue
		}
		return schedule.Swap(x, y), true
	}
	return schedule.Move{}, false
}
