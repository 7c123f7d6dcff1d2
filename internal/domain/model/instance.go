package model

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// TalkFact is the immutable part of a talk inside an Instance.
// Speakers holds speaker indices and must not be modified.
type TalkFact struct {
	ID       string
	Title    string
	Summary  string
	Track    int
	Level    Level
	Speakers []int
	Rank     int
	Ranked   bool
}

// SlotFact is a timeslot inside an Instance. Slots are indexed in
// (Day, Start, End) order.
type SlotFact struct {
	Day      int
	DayName  string
	Start    string
	End      string
	StartMin int
	EndMin   int
}

// Key is the sort key day*10000 + minutes from midnight.
func (s SlotFact) Key() int { return s.Day*10000 + s.StartMin }

// SpeakerFact is a speaker with merged availability. When Restricted is
// false the speaker is available every day.
type SpeakerFact struct {
	Name       string
	Days       []int
	Restricted bool
}

// AvailableOn reports whether the speaker may present on day.
func (s SpeakerFact) AvailableOn(day int) bool {
	return !s.Restricted || slices.Contains(s.Days, day)
}

// TrackFact is a track with its member talks in talk index order.
type TrackFact struct {
	Name    string
	Members []int

	// Consolidatable is true when some day has enough slots for every
	// placeable member and all of their speakers are available on it.
	Consolidatable bool
}

// Instance is the indexed, validated form of a Problem. Talks, slots,
// rooms, tracks and speakers are addressed by integer index. An Instance
// is read-only and safe for concurrent use.
type Instance struct {
	talks    []TalkFact
	slots    []SlotFact
	rooms    []string
	tracks   []TrackFact
	speakers []SpeakerFact
	days     []int

	allowed      []bool // talk*len(slots) + slot
	allowedSlots [][]int
	shared       []bool // talk*len(talks) + talk
}

// NewInstance validates p and builds its Instance.
func NewInstance(p Problem) (*Instance, error) {
	dayNames, err := buildDayNames(p.Days)
	if err != nil {
		return nil, err
	}
	slots, err := buildSlots(p.Timeslots, dayNames)
	if err != nil {
		return nil, err
	}
	rooms, err := buildRooms(p.Rooms)
	if err != nil {
		return nil, err
	}
	speakers, speakerIdx, err := buildSpeakers(p.Speakers)
	if err != nil {
		return nil, err
	}
	tracks, trackIdx, err := buildTracks(p.Tracks)
	if err != nil {
		return nil, err
	}
	talks, err := buildTalks(p.Talks, speakerIdx, trackIdx)
	if err != nil {
		return nil, err
	}
	if err := applyFlowRanks(talks, tracks, p.FlowRanks); err != nil {
		return nil, err
	}

	inst := &Instance{
		talks:    talks,
		slots:    slots,
		rooms:    rooms,
		tracks:   tracks,
		speakers: speakers,
		days:     lo.Uniq(lo.Map(slots, func(s SlotFact, _ int) int { return s.Day })),
	}
	inst.index()
	return inst, nil
}

func (in *Instance) index() {
	n, s := len(in.talks), len(in.slots)

	for i, t := range in.talks {
		in.tracks[t.Track].Members = append(in.tracks[t.Track].Members, i)
	}

	in.allowed = make([]bool, n*s)
	in.allowedSlots = make([][]int, n)
	for t, talk := range in.talks {
		for sl, slot := range in.slots {
			ok := !lo.SomeBy(talk.Speakers, func(sp int) bool {
				return !in.speakers[sp].AvailableOn(slot.Day)
			})
			in.allowed[t*s+sl] = ok
			if ok {
				in.allowedSlots[t] = append(in.allowedSlots[t], sl)
			}
		}
	}

	perDay := lo.CountValuesBy(in.slots, func(sl SlotFact) int { return sl.Day })
	for i := range in.tracks {
		in.tracks[i].Consolidatable = in.fitsOneDay(in.tracks[i].Members, perDay)
	}

	in.shared = make([]bool, n*n)
	bySpeaker := make([][]int, len(in.speakers))
	for t, talk := range in.talks {
		for _, sp := range talk.Speakers {
			bySpeaker[sp] = append(bySpeaker[sp], t)
		}
	}
	for _, members := range bySpeaker {
		for _, a := range members {
			for _, b := range members {
				if a != b {
					in.shared[a*n+b] = true
				}
			}
		}
	}
}

// fitsOneDay reports whether one day offers a slot per placeable member and
// every such member may be held that day.
func (in *Instance) fitsOneDay(members []int, perDay map[int]int) bool {
	placeable := lo.Reject(members, func(t int, _ int) bool { return in.Unplaceable(t) })
	if len(placeable) <= 1 {
		return true
	}
	return lo.SomeBy(in.days, func(day int) bool {
		if perDay[day] < len(placeable) {
			return false
		}
		return lo.EveryBy(placeable, func(t int) bool {
			return lo.EveryBy(in.talks[t].Speakers, func(sp int) bool {
				return in.speakers[sp].AvailableOn(day)
			})
		})
	})
}

// NumTalks returns the number of talks.
func (in *Instance) NumTalks() int { return len(in.talks) }

// NumSlots returns the number of timeslots.
func (in *Instance) NumSlots() int { return len(in.slots) }

// NumRooms returns the number of rooms.
func (in *Instance) NumRooms() int { return len(in.rooms) }

// NumTracks returns the number of tracks.
func (in *Instance) NumTracks() int { return len(in.tracks) }

// Capacity is the number of (timeslot, room) cells.
func (in *Instance) Capacity() int { return len(in.slots) * len(in.rooms) }

// Talk returns the talk at index t.
func (in *Instance) Talk(t int) TalkFact { return in.talks[t] }

// Slot returns the timeslot at index s.
func (in *Instance) Slot(s int) SlotFact { return in.slots[s] }

// Room returns the name of room r.
func (in *Instance) Room(r int) string { return in.rooms[r] }

// Track returns the track at index k.
func (in *Instance) Track(k int) TrackFact { return in.tracks[k] }

// Speaker returns the speaker at index sp.
func (in *Instance) Speaker(sp int) SpeakerFact { return in.speakers[sp] }

// Days returns the distinct day indices that have timeslots, ascending.
func (in *Instance) Days() []int { return in.days }

// MultiDay reports whether timeslots span more than one day.
func (in *Instance) MultiDay() bool { return len(in.days) > 1 }

// Allowed reports whether every speaker of talk t is available on the day
// of slot s.
func (in *Instance) Allowed(t, s int) bool { return in.allowed[t*len(in.slots)+s] }

// AllowedSlots returns the slots talk t may use, ascending.
func (in *Instance) AllowedSlots(t int) []int { return in.allowedSlots[t] }

// Unplaceable reports whether talk t has no allowed slot.
func (in *Instance) Unplaceable(t int) bool { return len(in.allowedSlots[t]) == 0 }

// SharesSpeaker reports whether two distinct talks have a common speaker.
func (in *Instance) SharesSpeaker(a, b int) bool { return in.shared[a*len(in.talks)+b] }

// SameTrack reports whether two talks belong to the same track.
func (in *Instance) SameTrack(a, b int) bool { return in.talks[a].Track == in.talks[b].Track }

// SlotBefore reports whether slot a starts strictly before slot b.
func (in *Instance) SlotBefore(a, b int) bool {
	sa, sb := in.slots[a], in.slots[b]
	if sa.Day != sb.Day {
		return sa.Day < sb.Day
	}
	return sa.StartMin < sb.StartMin
}

// SameDay reports whether two slots are on the same day.
func (in *Instance) SameDay(a, b int) bool { return in.slots[a].Day == in.slots[b].Day }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProblem, fmt.Sprintf(format, args...))
}

func buildDayNames(days []Day) (map[int]string, error) {
	names := make(map[int]string, len(days))
	for _, d := range days {
		if d.Index < 0 {
			return nil, invalid("negative day index %d", d.Index)
		}
		if _, dup := names[d.Index]; dup {
			return nil, invalid("duplicate day index %d", d.Index)
		}
		names[d.Index] = strings.TrimSpace(d.Name)
	}
	return names, nil
}

// dayName falls back to a 1-based "Day N" label.
func dayName(names map[int]string, day int) string {
	if n := names[day]; n != "" {
		return n
	}
	return "Day " + strconv.Itoa(day+1)
}

func buildSlots(in []Timeslot, dayNames map[int]string) ([]SlotFact, error) {
	type ident struct{ day, start, end int }
	seen := make(map[ident]bool, len(in))
	out := make([]SlotFact, 0, len(in))
	for _, ts := range in {
		if ts.Day < 0 {
			return nil, invalid("timeslot %s-%s has negative day %d", ts.Start, ts.End, ts.Day)
		}
		start, ok := ParseClock(ts.Start)
		if !ok {
			return nil, invalid("malformed start time %q", ts.Start)
		}
		end, ok := ParseClock(ts.End)
		if !ok {
			return nil, invalid("malformed end time %q", ts.End)
		}
		if end <= start {
			return nil, invalid("timeslot %s-%s ends before it starts", ts.Start, ts.End)
		}
		id := ident{ts.Day, start, end}
		if seen[id] {
			return nil, invalid("duplicate timeslot day %d %s-%s", ts.Day, ts.Start, ts.End)
		}
		seen[id] = true
		out = append(out, SlotFact{
			Day:      ts.Day,
			DayName:  dayName(dayNames, ts.Day),
			Start:    strings.TrimSpace(ts.Start),
			End:      strings.TrimSpace(ts.End),
			StartMin: start,
			EndMin:   end,
		})
	}
	slices.SortFunc(out, func(a, b SlotFact) int {
		return cmp.Or(cmp.Compare(a.Day, b.Day), cmp.Compare(a.StartMin, b.StartMin), cmp.Compare(a.EndMin, b.EndMin))
	})
	return out, nil
}

func buildRooms(in []Room) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, r := range in {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			return nil, invalid("room with empty name")
		}
		if slices.Contains(out, name) {
			return nil, invalid("duplicate room %q", name)
		}
		out = append(out, name)
	}
	return out, nil
}

// buildSpeakers merges repeated declarations of the same normalized name by
// intersecting their availability; an unrestricted declaration adopts the
// other one's days.
func buildSpeakers(in []Speaker) ([]SpeakerFact, map[string]int, error) {
	out := make([]SpeakerFact, 0, len(in))
	idx := make(map[string]int, len(in))
	for _, sp := range in {
		key := NormalizeName(sp.Name)
		if key == "" {
			return nil, nil, invalid("speaker with empty name")
		}
		for _, d := range sp.AvailableDays {
			if d < 0 {
				return nil, nil, invalid("speaker %q has negative available day %d", sp.Name, d)
			}
		}
		days := lo.Uniq(sp.AvailableDays)
		slices.Sort(days)
		fact := SpeakerFact{Name: strings.TrimSpace(sp.Name), Days: days, Restricted: len(days) > 0}

		i, dup := idx[key]
		if !dup {
			idx[key] = len(out)
			out = append(out, fact)
			continue
		}
		prev := out[i]
		switch {
		case !fact.Restricted:
		case !prev.Restricted:
			prev.Days, prev.Restricted = fact.Days, true
		default:
			prev.Days = lo.Filter(prev.Days, func(d int, _ int) bool { return slices.Contains(fact.Days, d) })
		}
		out[i] = prev
	}
	return out, idx, nil
}

func buildTracks(in []Track) ([]TrackFact, map[string]int, error) {
	out := make([]TrackFact, 0, len(in))
	idx := make(map[string]int, len(in))
	for _, tr := range in {
		name := strings.TrimSpace(tr.Name)
		if name == "" {
			return nil, nil, invalid("track with empty name")
		}
		if _, dup := idx[name]; dup {
			return nil, nil, invalid("duplicate track %q", name)
		}
		idx[name] = len(out)
		out = append(out, TrackFact{Name: name})
	}
	return out, idx, nil
}

func buildTalks(in []Talk, speakerIdx, trackIdx map[string]int) ([]TalkFact, error) {
	out := make([]TalkFact, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return nil, invalid("talk with empty id")
		}
		if seen[id] {
			return nil, invalid("duplicate talk id %q", id)
		}
		seen[id] = true

		track, ok := trackIdx[strings.TrimSpace(t.Track)]
		if !ok {
			return nil, invalid("unknown track %q on talk %q", t.Track, id)
		}
		level := t.Level
		if level == 0 {
			level = LevelIntermediate
		}
		if level < LevelBeginner || level > LevelAdvanced {
			return nil, invalid("unknown level %d on talk %q", t.Level, id)
		}
		if len(t.Speakers) == 0 {
			return nil, invalid("talk %q has no speakers", id)
		}
		speakers := make([]int, 0, len(t.Speakers))
		for _, name := range t.Speakers {
			sp, ok := speakerIdx[NormalizeName(name)]
			if !ok {
				return nil, invalid("unknown speaker %q on talk %q", name, id)
			}
			speakers = append(speakers, sp)
		}

		fact := TalkFact{
			ID:       id,
			Title:    t.Title,
			Summary:  t.Summary,
			Track:    track,
			Level:    level,
			Speakers: lo.Uniq(speakers),
		}
		if t.FlowRank != nil {
			fact.Rank, fact.Ranked = *t.FlowRank, true
		}
		out = append(out, fact)
	}
	slices.SortStableFunc(out, func(a, b TalkFact) int { return CompareIDs(a.ID, b.ID) })
	return out, nil
}

func applyFlowRanks(talks []TalkFact, tracks []TrackFact, ranks map[string]map[string]int) error {
	if len(ranks) == 0 {
		return nil
	}
	byID := make(map[string]int, len(talks))
	for i, t := range talks {
		byID[t.ID] = i
	}
	trackNames := lo.Map(tracks, func(t TrackFact, _ int) string { return t.Name })

	// Sorted for a stable first error.
	names := lo.Keys(ranks)
	slices.Sort(names)
	for _, trackName := range names {
		k := slices.Index(trackNames, trackName)
		if k < 0 {
			return invalid("flow ranks for unknown track %q", trackName)
		}
		ids := lo.Keys(ranks[trackName])
		slices.SortFunc(ids, CompareIDs)
		for _, id := range ids {
			t, ok := byID[id]
			if !ok {
				return invalid("flow rank for unknown talk %q", id)
			}
			if talks[t].Track != k {
				return invalid("flow rank for talk %q listed under track %q", id, trackName)
			}
			talks[t].Rank, talks[t].Ranked = ranks[trackName][id], true
		}
	}
	return nil
}
