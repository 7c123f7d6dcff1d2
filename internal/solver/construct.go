package solver

import (
	"cmp"
	"slices"

	"github.com/okian/talksched/internal/domain/schedule"
	"github.com/okian/talksched/internal/domain/scoring"
)

// order returns the movable talks most constrained first: fewest allowed
// slots, then talk id. Starts other than the first shuffle the ties.
func (r *run) order() []int {
	inst := r.s.inst
	talks := slices.Clone(r.s.gen.Movable())
	if r.job.Start > 0 {
		r.rng.Shuffle(len(talks), func(i, j int) { talks[i], talks[j] = talks[j], talks[i] })
	}
	slices.SortStableFunc(talks, func(a, b int) int {
		c := cmp.Compare(len(inst.AllowedSlots(a)), len(inst.AllowedSlots(b)))
		if c != 0 || r.job.Start > 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return talks
}

// construct places talks greedily into the free allowed cell with the best
// incremental score, ties by (slot, room). When no allowed cell is free the
// least bad occupied one is used so the assignment stays complete. Once
// every cell is taken the remaining talks stay unplaced.
func (r *run) construct() {
	inst, calc := r.s.inst, r.s.calc
	free := inst.Capacity()
	shuffle := r.job.Start > 0

	for _, t := range r.order() {
		if free == 0 {
			break
		}
		var (
			bestSlot, bestRoom = schedule.Unassigned, schedule.Unassigned
			bestScore          scoring.Score
			bestFree           bool
			ties               int
		)
		for _, s := range inst.AllowedSlots(t) {
			for rm := 0; rm < inst.NumRooms(); rm++ {
				isFree := r.a.Free(s, rm)
				if bestFree && !isFree {
					continue
				}
				d := calc.PlacementDelta(r.a, t, s, rm)
				switch {
				case bestSlot == schedule.Unassigned, isFree && !bestFree, d.Better(bestScore):
					bestSlot, bestRoom, bestScore, bestFree, ties = s, rm, d, isFree, 1
				case d.Compare(bestScore) == 0 && shuffle:
					// reservoir sampling over equal candidates
					ties++
					if r.rng.Intn(ties) == 0 {
						bestSlot, bestRoom = s, rm
					}
				}
			}
		}
		r.a.Assign(t, bestSlot, bestRoom)
		r.current = r.current.Add(bestScore)
		if bestFree {
			free--
		}
	}
	r.record()
}
