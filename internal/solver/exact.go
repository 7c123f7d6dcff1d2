package solver

import (
	"context"

	"github.com/okian/talksched/internal/domain/scoring"
)

const ctxCheckNodes = 1024

type bnb struct {
	r       *run
	ctx     context.Context
	order   []int
	partial scoring.Score

	// feasible is true once the best state is a complete feasible one.
	feasible bool
	stopped  bool
}

// exact proves optimality or infeasibility by depth-first branch and bound
// over the construction order. Partial assignments are pruned as soon as a
// hard constraint is violated, and whenever their soft score can no longer
// beat a feasible incumbent, since adding talks only lowers the soft score.
func (r *run) exact(ctx context.Context) Termination {
	inst := r.s.inst
	order := r.order()

	// A talk that can never be placed, or more talks than cells, makes
	// the instance infeasible without any search.
	if len(order) < inst.NumTalks() || len(order) > inst.Capacity() {
		if term := r.improve(ctx, false); term == TerminationTimeExpired {
			return term
		}
		return TerminationProvenInfeasible
	}

	// Search from an empty assignment; the construction stays the best
	// state until a complete assignment beats it.
	constructed := r.a.Snapshot()
	for _, t := range order {
		r.a.Unassign(t)
	}
	b := &bnb{r: r, ctx: ctx, order: order, feasible: r.bestScore.Feasible() && unplaced(r.best) == 0}
	b.dfs(0)

	if b.stopped {
		r.a.Restore(r.best)
		r.current = r.bestScore
		return TerminationTimeExpired
	}
	if b.feasible {
		r.a.Restore(r.best)
		r.current = r.bestScore
		return TerminationProvenOptimal
	}

	// No feasible complete assignment exists; polish the construction.
	r.a.Restore(constructed)
	r.current = r.bestScore
	if term := r.improve(ctx, false); term == TerminationTimeExpired {
		return term
	}
	return TerminationProvenInfeasible
}

func (b *bnb) dfs(depth int) {
	r := b.r
	if depth == len(b.order) {
		if !b.feasible || b.partial.Better(r.bestScore) {
			r.current = b.partial
			r.best = r.a.Snapshot()
			r.bestScore = b.partial
			r.hasBest = true
			b.feasible = true
			r.stats.Improvements++
		}
		return
	}

	inst, calc := r.s.inst, r.s.calc
	t := b.order[depth]
	for _, s := range inst.AllowedSlots(t) {
		for rm := 0; rm < inst.NumRooms(); rm++ {
			if b.stop() {
				return
			}
			if !r.a.Free(s, rm) {
				continue
			}
			r.stats.Nodes++
			d := calc.PlacementDelta(r.a, t, s, rm)
			next := b.partial.Add(d)
			if next.Hard < 0 {
				continue
			}
			if b.feasible && next.Soft <= r.bestScore.Soft {
				continue
			}
			prev := b.partial
			b.partial = next
			r.a.Assign(t, s, rm)
			b.dfs(depth + 1)
			r.a.Unassign(t)
			b.partial = prev
			if b.stopped {
				return
			}
		}
	}
}

// stop checks the node budget every node and the context every
// ctxCheckNodes nodes.
func (b *bnb) stop() bool {
	if b.stopped {
		return true
	}
	r := b.r
	if r.stats.Nodes >= r.s.opts.ExactNodeLimit ||
		(r.stats.Nodes%ctxCheckNodes == 0 && b.ctx.Err() != nil) {
		b.stopped = true
	}
	return b.stopped
}
