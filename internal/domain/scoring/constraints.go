package scoring

import (
	"fmt"
	"slices"

	"github.com/okian/talksched/internal/domain/model"
)

// Constraint names.
const (
	RoomConflict        = "room_conflict"
	SpeakerConflict     = "speaker_conflict"
	TrackConflict       = "track_conflict"
	SpeakerAvailability = "speaker_availability"
	FlowLevel           = "educational_flow_level"
	FlowRank            = "educational_flow_rank"
	TrackRoom           = "track_room"
	TrackDay            = "track_day"
)

// Kind tells whether a constraint contributes to the hard or soft score.
type Kind uint8

const (
	Hard Kind = iota
	Soft
)

func (k Kind) String() string {
	if k == Soft {
		return "soft"
	}
	return "hard"
}

// Scope limits which pairs a pair constraint is evaluated on. A constraint
// must return zero for every pair outside its scope.
type Scope uint8

const (
	// ScopeSlot pairs share a timeslot.
	ScopeSlot Scope = iota
	// ScopeTrack pairs share a track.
	ScopeTrack
	// ScopeAny is every pair of placed talks.
	ScopeAny
)

// Placement is a placed talk and its cell.
type Placement struct {
	Talk int
	Slot int
	Room int
}

// PairFunc returns the number of violations between two distinct placed
// talks. It must be symmetric in x and y.
type PairFunc func(in *model.Instance, x, y Placement) int

// UnaryFunc returns the number of violations of a single placed talk.
type UnaryFunc func(in *model.Instance, x Placement) int

// Constraint is a pure scoring rule. Each violation contributes -Weight to
// the score part named by Kind. Either Pair or Unary is set.
type Constraint struct {
	Name   string
	Kind   Kind
	Weight int
	Scope  Scope
	Pair   PairFunc
	Unary  UnaryFunc
}

// Weights are the soft constraint weights.
type Weights struct {
	FlowLevel int
	FlowRank  int
	TrackRoom int
	TrackDay  int
}

// DefaultWeights returns the documented defaults. FlowRank outweighs
// FlowLevel so an explicit ranking wins over audience level.
func DefaultWeights() Weights {
	return Weights{FlowLevel: 1, FlowRank: 3, TrackRoom: 1, TrackDay: 1}
}

// WeightsFromMap overlays m onto the defaults. Keys are soft constraint
// names; unknown keys and negative weights are rejected.
func WeightsFromMap(m map[string]int) (Weights, error) {
	w := DefaultWeights()
	for k, v := range m {
		if v < 0 {
			return w, fmt.Errorf("negative weight %d for %q", v, k)
		}
		switch k {
		case FlowLevel:
			w.FlowLevel = v
		case FlowRank:
			w.FlowRank = v
		case TrackRoom:
			w.TrackRoom = v
		case TrackDay:
			w.TrackDay = v
		default:
			return w, fmt.Errorf("unknown soft constraint %q", k)
		}
	}
	return w, nil
}

// Map returns the weights keyed by constraint name.
func (w Weights) Map() map[string]int {
	return map[string]int{FlowLevel: w.FlowLevel, FlowRank: w.FlowRank, TrackRoom: w.TrackRoom, TrackDay: w.TrackDay}
}

// SoftNames lists the soft constraint names accepted by WeightsFromMap.
func SoftNames() []string {
	names := []string{FlowLevel, FlowRank, TrackRoom, TrackDay}
	slices.Sort(names)
	return names
}

// DefaultConstraints returns the built-in constraints in evaluation order.
func DefaultConstraints(w Weights) []Constraint {
	return []Constraint{
		{Name: RoomConflict, Kind: Hard, Weight: 1, Scope: ScopeSlot, Pair: roomConflict},
		{Name: SpeakerConflict, Kind: Hard, Weight: 1, Scope: ScopeSlot, Pair: speakerConflict},
		{Name: TrackConflict, Kind: Hard, Weight: 1, Scope: ScopeSlot, Pair: trackConflict},
		{Name: SpeakerAvailability, Kind: Hard, Weight: 1, Unary: speakerAvailability},
		{Name: FlowLevel, Kind: Soft, Weight: w.FlowLevel, Scope: ScopeTrack, Pair: flowLevel},
		{Name: FlowRank, Kind: Soft, Weight: w.FlowRank, Scope: ScopeTrack, Pair: flowRank},
		{Name: TrackRoom, Kind: Soft, Weight: w.TrackRoom, Scope: ScopeTrack, Pair: trackRoom},
		{Name: TrackDay, Kind: Soft, Weight: w.TrackDay, Scope: ScopeTrack, Pair: trackDay},
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func roomConflict(_ *model.Instance, x, y Placement) int {
	return b2i(x.Slot == y.Slot && x.Room == y.Room)
}

func speakerConflict(in *model.Instance, x, y Placement) int {
	return b2i(x.Slot == y.Slot && in.SharesSpeaker(x.Talk, y.Talk))
}

func trackConflict(in *model.Instance, x, y Placement) int {
	return b2i(x.Slot == y.Slot && x.Room != y.Room && in.SameTrack(x.Talk, y.Talk))
}

func speakerAvailability(in *model.Instance, x Placement) int {
	return b2i(!in.Allowed(x.Talk, x.Slot))
}

// ordered returns the pair with the earlier start first. ok is false when
// the pair is not comparable: other track, other day or equal start.
func ordered(in *model.Instance, x, y Placement) (first, second Placement, ok bool) {
	if !in.SameTrack(x.Talk, y.Talk) || !in.SameDay(x.Slot, y.Slot) {
		return x, y, false
	}
	switch {
	case in.SlotBefore(x.Slot, y.Slot):
		return x, y, true
	case in.SlotBefore(y.Slot, x.Slot):
		return y, x, true
	}
	return x, y, false
}

func flowLevel(in *model.Instance, x, y Placement) int {
	first, second, ok := ordered(in, x, y)
	if !ok {
		return 0
	}
	return b2i(in.Talk(first.Talk).Level > in.Talk(second.Talk).Level)
}

// flowRank treats equal ranks as equivalent.
func flowRank(in *model.Instance, x, y Placement) int {
	first, second, ok := ordered(in, x, y)
	if !ok {
		return 0
	}
	a, b := in.Talk(first.Talk), in.Talk(second.Talk)
	return b2i(a.Ranked && b.Ranked && a.Rank > b.Rank)
}

func trackRoom(in *model.Instance, x, y Placement) int {
	return b2i(x.Room != y.Room && in.SameTrack(x.Talk, y.Talk) && in.SameDay(x.Slot, y.Slot))
}

func trackDay(in *model.Instance, x, y Placement) int {
	if !in.SameTrack(x.Talk, y.Talk) || in.SameDay(x.Slot, y.Slot) {
		return 0
	}
	return b2i(in.Track(in.Talk(x.Talk).Track).Consolidatable)
}
