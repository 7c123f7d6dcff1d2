// Package schedule holds the decision variables of a solve: the slot and
// room of every talk, plus the side tables kept in sync with them.
package schedule

import (
	"slices"

	"github.com/okian/talksched/internal/domain/model"
)

// Unassigned marks a talk without a slot or room.
const Unassigned = -1

// Assignment maps talks to (slot, room) cells. It is owned by a single
// search goroutine; use Clone to hand a copy to another one.
type Assignment struct {
	inst *model.Instance
	slot []int
	room []int

	byCell [][]int // slot*rooms + room
	bySlot [][]int
	placed int
}

// New returns an Assignment with every talk unassigned.
func New(inst *model.Instance) *Assignment {
	n := inst.NumTalks()
	a := &Assignment{
		inst:   inst,
		slot:   make([]int, n),
		room:   make([]int, n),
		byCell: make([][]int, inst.Capacity()),
		bySlot: make([][]int, inst.NumSlots()),
	}
	for t := range a.slot {
		a.slot[t] = Unassigned
		a.room[t] = Unassigned
	}
	return a
}

// Instance returns the problem the assignment belongs to.
func (a *Assignment) Instance() *model.Instance { return a.inst }

// Slot returns the slot of talk t or Unassigned.
func (a *Assignment) Slot(t int) int { return a.slot[t] }

// Room returns the room of talk t or Unassigned.
func (a *Assignment) Room(t int) int { return a.room[t] }

// Placed reports whether talk t has both a slot and a room.
func (a *Assignment) Placed(t int) bool { return a.slot[t] != Unassigned }

// NumPlaced returns the number of placed talks.
func (a *Assignment) NumPlaced() int { return a.placed }

// Cell returns the talks in (slot, room). More than one means a room
// conflict. The slice must not be modified.
func (a *Assignment) Cell(slot, room int) []int {
	return a.byCell[slot*a.inst.NumRooms()+room]
}

// Free reports whether (slot, room) holds no talk.
func (a *Assignment) Free(slot, room int) bool { return len(a.Cell(slot, room)) == 0 }

// SlotTalks returns the talks placed in slot. The slice must not be modified.
func (a *Assignment) SlotTalks(slot int) []int { return a.bySlot[slot] }

// Assign moves talk t to (slot, room). Passing Unassigned for slot
// unassigns the talk.
func (a *Assignment) Assign(t, slot, room int) {
	if a.slot[t] == slot && a.room[t] == room {
		return
	}
	a.detach(t)
	if slot == Unassigned || room == Unassigned {
		return
	}
	a.slot[t], a.room[t] = slot, room
	c := slot*a.inst.NumRooms() + room
	a.byCell[c] = append(a.byCell[c], t)
	a.bySlot[slot] = append(a.bySlot[slot], t)
	a.placed++
}

// Unassign clears the cell of talk t.
func (a *Assignment) Unassign(t int) { a.Assign(t, Unassigned, Unassigned) }

func (a *Assignment) detach(t int) {
	s := a.slot[t]
	if s == Unassigned {
		return
	}
	c := s*a.inst.NumRooms() + a.room[t]
	a.byCell[c] = remove(a.byCell[c], t)
	a.bySlot[s] = remove(a.bySlot[s], t)
	a.slot[t], a.room[t] = Unassigned, Unassigned
	a.placed--
}

func remove(xs []int, v int) []int {
	if i := slices.Index(xs, v); i >= 0 {
		return slices.Delete(xs, i, i+1)
	}
	return xs
}

// Apply performs m and returns the move that undoes it.
func (a *Assignment) Apply(m Move) Move {
	switch m.Kind {
	case KindSwap:
		sa, ra := a.slot[m.A], a.room[m.A]
		sb, rb := a.slot[m.B], a.room[m.B]
		// Detach both first so neither transiently shares a cell.
		a.detach(m.A)
		a.detach(m.B)
		a.Assign(m.A, sb, rb)
		a.Assign(m.B, sa, ra)
		return m
	default:
		undo := Reassign(m.A, a.slot[m.A], a.room[m.A])
		a.Assign(m.A, m.Slot, m.Room)
		return undo
	}
}

// Clone returns an independent copy sharing the read-only instance.
func (a *Assignment) Clone() *Assignment {
	c := New(a.inst)
	c.Restore(a.Snapshot())
	return c
}

// Snapshot is a compact copy of the decision variables.
type Snapshot struct {
	Slots []int
	Rooms []int
}

// Snapshot copies the current decision variables.
func (a *Assignment) Snapshot() Snapshot {
	return Snapshot{Slots: slices.Clone(a.slot), Rooms: slices.Clone(a.room)}
}

// Restore replaces the decision variables with s and rebuilds the side
// tables.
func (a *Assignment) Restore(s Snapshot) {
	for i := range a.byCell {
		a.byCell[i] = a.byCell[i][:0]
	}
	for i := range a.bySlot {
		a.bySlot[i] = a.bySlot[i][:0]
	}
	a.placed = 0
	for t := range a.slot {
		a.slot[t], a.room[t] = Unassigned, Unassigned
	}
	for t := range s.Slots {
		a.Assign(t, s.Slots[t], s.Rooms[t])
	}
}
