package schedule

import "fmt"

// Kind is the type of a move.
type Kind uint8

const (
	// KindReassign moves talk A to (Slot, Room).
	KindReassign Kind = iota
	// KindSwap exchanges the cells of talks A and B.
	KindSwap
)

func (k Kind) String() string {
	if k == KindSwap {
		return "swap"
	}
	return "reassign"
}

// Move is an atomic change to one or two talks.
type Move struct {
	Kind Kind
	A    int
	B    int
	Slot int
	Room int
}

// Reassign returns a move placing talk t in (slot, room).
func Reassign(t, slot, room int) Move {
	return Move{Kind: KindReassign, A: t, B: Unassigned, Slot: slot, Room: room}
}

// Swap returns a move exchanging the cells of talks a and b.
func Swap(a, b int) Move {
	return Move{Kind: KindSwap, A: a, B: b, Slot: Unassigned, Room: Unassigned}
}

func (m Move) String() string {
	if m.Kind == KindSwap {
		return fmt.Sprintf("swap(%d,%d)", m.A, m.B)
	}
	return fmt.Sprintf("reassign(%d->%d/%d)", m.A, m.Slot, m.Room)
}
