package solver

import (
	"context"
	"math"

	"github.com/okian/talksched/internal/domain/schedule"
	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/internal/domain/tabu"
)

// tabuKey identifies "talk t in cell c"; the unassigned state is cell
// Capacity().
func (r *run) tabuKey(t, slot, room int) uint64 {
	cells := r.s.inst.Capacity()
	cell := cells
	if slot != schedule.Unassigned {
		cell = slot*r.s.inst.NumRooms() + room
	}
	return uint64(t)*uint64(cells+1) + uint64(cell)
}

// isTabu reports whether m puts a talk back into a cell it recently left.
func (r *run) isTabu(mem tabu.Memory, m schedule.Move, iter int64) bool {
	if m.Kind == schedule.KindSwap {
		return mem.IsTabu(r.tabuKey(m.A, r.a.Slot(m.B), r.a.Room(m.B)), iter) ||
			mem.IsTabu(r.tabuKey(m.B, r.a.Slot(m.A), r.a.Room(m.A)), iter)
	}
	return mem.IsTabu(r.tabuKey(m.A, m.Slot, m.Room), iter)
}

// forbid marks the cells the talks of m are about to leave.
func (r *run) forbid(mem tabu.Memory, m schedule.Move, iter int64) {
	o := r.s.opts
	tenure := o.TabuTenure
	if o.TabuTenureRand > 0 {
		tenure += r.rng.Intn(o.TabuTenureRand + 1)
	}
	exp := iter + int64(tenure)
	mem.Add(r.tabuKey(m.A, r.a.Slot(m.A), r.a.Room(m.A)), exp)
	if m.Kind == schedule.KindSwap {
		mem.Add(r.tabuKey(m.B, r.a.Slot(m.B), r.a.Room(m.B)), exp)
	}
}

// energy is the annealing cost of a worsening delta. A lost hard point is
// worth HardScale soft points.
func (r *run) energy(d scoring.Score) float64 {
	if d.Hard < 0 {
		return float64(d.Hard * r.s.opts.HardScale)
	}
	return float64(d.Soft)
}

// improve runs local search from the current assignment until the deadline
// or convergence. With requireFeasible the stagnation rule only applies
// once the best state has no hard violation. A fully enumerated
// neighborhood without an improving move at zero temperature is a local
// optimum and converges regardless.
func (r *run) improve(ctx context.Context, requireFeasible bool) Termination {
	o := r.s.opts
	mem := tabu.NewMemory(tabu.WithCapacity(tabu.CapacityFor(o.TabuTenure, o.TabuTenureRand)))
	temp := o.TempHigh
	var (
		buf        []schedule.Move
		lastBest   = r.stats.Iterations
		perfect    = scoring.Score{}
		exhaustive = r.s.gen.Exhaustive(r.a)
	)

	for iter := int64(1); ; iter++ {
		if ctx.Err() != nil {
			return TerminationTimeExpired
		}
		if r.bestScore == perfect {
			return TerminationConverged
		}
		if (!requireFeasible || r.bestScore.Feasible()) && r.stats.Iterations-lastBest >= o.StagnationWindow {
			return TerminationConverged
		}
		r.stats.Iterations++

		buf = r.s.gen.Generate(r.a, r.rng, buf)
		if len(buf) == 0 {
			return TerminationConverged
		}

		chosen, found, improving := schedule.Move{}, false, false
		var chosenDelta scoring.Score
		for _, m := range buf {
			d := r.s.calc.Delta(r.a, m)
			r.stats.Evaluations++
			if d.Compare(perfect) > 0 {
				improving = true
			}
			if r.isTabu(mem, m, iter) && !r.current.Add(d).Better(r.bestScore) {
				continue
			}
			if !found || d.Better(chosenDelta) {
				chosen, chosenDelta, found = m, d, true
			}
		}
		if exhaustive && temp == 0 && !improving {
			return TerminationConverged
		}
		if found && r.accept(chosenDelta, temp) {
			r.forbid(mem, chosen, iter)
			r.a.Apply(chosen)
			r.current = r.current.Add(chosenDelta)
			if chosen.Kind == schedule.KindSwap {
				r.stats.AcceptedSwap++
			} else {
				r.stats.AcceptedReassign++
			}
			if r.record() {
				r.stats.Improvements++
				lastBest = r.stats.Iterations
			}
		}

		temp *= o.Cooling
		if temp < o.TempLow {
			temp = 0
		}
	}
}

// accept applies the Metropolis rule: non-worsening moves always pass,
// worsening ones with probability exp(-delta/T).
func (r *run) accept(d scoring.Score, temp float64) bool {
	if d.Compare(scoring.Score{}) >= 0 {
		return true
	}
	if temp <= 0 {
		return false
	}
	return r.rng.Float64() < math.Exp(r.energy(d)/temp)
}
