package service

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/okian/talksched/internal/domain/model"
	"github.com/okian/talksched/internal/domain/schedule"
	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/internal/solver"
)

// Reasons a talk is left unplaced.
const (
	ReasonSpeakerUnavailable = "speaker_unavailable"
	ReasonCapacityExceeded   = "capacity_exceeded"
)

// Entry is one placed talk, denormalized for rendering.
type Entry struct {
	TalkID   string
	Title    string
	Summary  string
	Track    string
	Level    model.Level
	Speakers []string
	FlowRank *int

	Day     int
	DayName string
	Start   string
	End     string
	Room    string
}

// UnplacedTalk is a talk without a cell in the best schedule.
type UnplacedTalk struct {
	TalkID string
	Title  string
	Reason string
}

// Violation is a hard constraint broken by the listed talks.
type Violation struct {
	Constraint string
	TalkIDs    []string
}

// Stats sums the work of every start of a solve.
type Stats struct {
	Mode        string
	Starts      int
	Iterations  int64
	Evaluations int64
	Nodes       int64
	Duration    time.Duration
}

// Result is the schedule of one solve.
type Result struct {
	RunID       string
	Placed      []Entry
	Unplaced    []UnplacedTalk
	Score       scoring.Score
	Feasible    bool
	Termination string
	Breakdown   map[string]int
	Violations  []Violation
	Stats       Stats
}

// Extract turns the best state of an outcome into a Result. Placed talks
// are ordered by slot, then room name; unplaced talks by id.
func Extract(inst *model.Instance, calc *scoring.Calculator, out solver.Outcome) Result { //nolint:gocritic // hugeParam: outcomes are values
	a := schedule.New(inst)
	a.Restore(out.Best)
	expl := calc.Explain(a)

	res := Result{
		RunID:       out.RunID,
		Score:       expl.Score,
		Termination: string(out.Termination),
		Breakdown:   expl.Breakdown,
		Placed:      []Entry{},
		Unplaced:    []UnplacedTalk{},
		Violations: lo.Map(expl.Violations, func(v scoring.Violation, _ int) Violation {
			return Violation{Constraint: v.Constraint, TalkIDs: talkIDs(inst, v.Talks)}
		}),
	}

	for t := 0; t < inst.NumTalks(); t++ {
		f := inst.Talk(t)
		if !a.Placed(t) {
			u := UnplacedTalk{TalkID: f.ID, Title: f.Title, Reason: ReasonCapacityExceeded}
			if inst.Unplaceable(t) {
				u.Reason = ReasonSpeakerUnavailable
				res.Violations = append(res.Violations, Violation{
					Constraint: scoring.SpeakerAvailability,
					TalkIDs:    []string{f.ID},
				})
			}
			res.Unplaced = append(res.Unplaced, u)
			continue
		}
		res.Placed = append(res.Placed, entry(inst, t, a.Slot(t), a.Room(t)))
	}

	slices.SortStableFunc(res.Placed, func(x, y Entry) int {
		if c := cmp.Compare(x.Day, y.Day); c != 0 {
			return c
		}
		if c := cmp.Compare(clock(x.Start), clock(y.Start)); c != 0 {
			return c
		}
		return cmp.Compare(x.Room, y.Room)
	})
	res.Feasible = res.Score.Feasible() && len(res.Unplaced) == 0
	return res
}

func entry(inst *model.Instance, t, slot, room int) Entry {
	f, s := inst.Talk(t), inst.Slot(slot)
	e := Entry{
		TalkID:  f.ID,
		Title:   f.Title,
		Summary: f.Summary,
		Track:   inst.Track(f.Track).Name,
		Level:   f.Level,
		Speakers: lo.Map(f.Speakers, func(sp int, _ int) string {
			return inst.Speaker(sp).Name
		}),
		Day:     s.Day,
		DayName: s.DayName,
		Start:   s.Start,
		End:     s.End,
		Room:    inst.Room(room),
	}
	if f.Ranked {
		r := f.Rank
		e.FlowRank = &r
	}
	return e
}

func talkIDs(inst *model.Instance, talks []int) []string {
	return lo.Map(talks, func(t int, _ int) string { return inst.Talk(t).ID })
}

func clock(s string) int {
	m, _ := model.ParseClock(s)
	return m
}
