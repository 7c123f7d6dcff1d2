// Package modeltest builds small problem instances for tests.
package modeltest

import (
	"fmt"
	"strconv"

	"github.com/okian/talksched/internal/domain/model"
)

// Builder assembles a model.Problem fluently.
type Builder struct {
	p model.Problem
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// Slots adds count consecutive one-hour slots on day starting at 09:00.
func (b *Builder) Slots(day, count int) *Builder {
	for i := 0; i < count; i++ {
		b.p.Timeslots = append(b.p.Timeslots, model.Timeslot{
			Day:   day,
			Start: fmt.Sprintf("%02d:00", 9+i),
			End:   fmt.Sprintf("%02d:00", 10+i),
		})
	}
	return b
}

// Rooms adds rooms with the given names.
func (b *Builder) Rooms(names ...string) *Builder {
	for _, n := range names {
		b.p.Rooms = append(b.p.Rooms, model.Room{Name: n})
	}
	return b
}

// Track declares a track.
func (b *Builder) Track(name string) *Builder {
	b.p.Tracks = append(b.p.Tracks, model.Track{Name: name})
	return b
}

// Speaker declares a speaker available on days; no days means any day.
func (b *Builder) Speaker(name string, days ...int) *Builder {
	b.p.Speakers = append(b.p.Speakers, model.Speaker{Name: name, AvailableDays: days})
	return b
}

// Talk adds a talk.
func (b *Builder) Talk(id, track string, level model.Level, speakers ...string) *Builder {
	b.p.Talks = append(b.p.Talks, model.Talk{
		ID:       id,
		Title:    "Talk " + id,
		Track:    track,
		Level:    level,
		Speakers: speakers,
	})
	return b
}

// Rank sets the flow rank of the most recently added talk.
func (b *Builder) Rank(rank int) *Builder {
	b.p.Talks[len(b.p.Talks)-1].FlowRank = &rank
	return b
}

// Problem returns the assembled problem.
func (b *Builder) Problem() model.Problem { return b.p }

// Instance builds the instance and panics on error.
func (b *Builder) Instance() *model.Instance {
	inst, err := model.NewInstance(b.p)
	if err != nil {
		panic(err)
	}
	return inst
}

// ScenarioA: one day, two rooms, two slots, four unrelated talks.
func ScenarioA() *Builder {
	b := New().Slots(0, 2).Rooms("A", "B")
	for i := 1; i <= 4; i++ {
		id := strconv.Itoa(i)
		b.Track("T" + id).Speaker("S"+id).Talk(id, "T"+id, model.LevelIntermediate, "S"+id)
	}
	return b
}

// ScenarioB: two talks of the same speaker and a single slot.
func ScenarioB() *Builder {
	return New().Slots(0, 1).Rooms("A", "B").
		Track("X").Track("Y").
		Speaker("Ada").
		Talk("1", "X", model.LevelBeginner, "Ada").
		Talk("2", "Y", model.LevelBeginner, "Ada")
}

// ScenarioC: a track of BEGINNER, ADVANCED, INTERMEDIATE talks on one day.
func ScenarioC() *Builder {
	return New().Slots(0, 3).Rooms("A").
		Track("Go").
		Speaker("S1").Speaker("S2").Speaker("S3").
		Talk("1", "Go", model.LevelBeginner, "S1").
		Talk("2", "Go", model.LevelAdvanced, "S2").
		Talk("3", "Go", model.LevelIntermediate, "S3")
}

// ScenarioD is ScenarioC with flow ranks that put the advanced talk first
// and the beginner talk last.
func ScenarioD() *Builder {
	return New().Slots(0, 3).Rooms("A").
		Track("Go").
		Speaker("S1").Speaker("S2").Speaker("S3").
		Talk("1", "Go", model.LevelBeginner, "S1").Rank(3).
		Talk("2", "Go", model.LevelAdvanced, "S2").Rank(1).
		Talk("3", "Go", model.LevelIntermediate, "S3").Rank(2)
}

// ScenarioE: speaker available on day 1 only, slots exist on day 0 only.
func ScenarioE() *Builder {
	b := New().Slots(0, 2).Rooms("A").
		Track("X").
		Speaker("Late", 1).
		Talk("1", "X", model.LevelBeginner, "Late")
	b.p.Days = []model.Day{{Index: 0, Name: "Monday"}, {Index: 1, Name: "Tuesday"}}
	return b
}
