package problemfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/talksched/internal/adapters/problemfile"
	"github.com/okian/talksched/internal/domain/model"
)

const conference = `
days:
  - {index: 0, name: Monday}
  - {index: 1, name: Tuesday}
timeslots:
  - {day: 0, start: "09:00", end: "10:00"}
  - {day: 0, start: "10:00", end: "11:00"}
  - {day: 1, start: "09:00", end: "10:00"}
rooms: [Main, Side]
speakers:
  - name: Ada Lovelace
    available_days: [1]
tracks: [Go]
talks:
  - id: "1"
    title: Generics in practice
    track: Go
    level: beginner
    speakers: [Ada Lovelace]
  - id: "2"
    title: Scheduler internals
    track: Go
    level: ADVANCED
    speakers: [Rob, Ken]
    flow_rank: 2
  - id: "3"
    title: Tooling
    track: Tools
    speakers: [ken]
flow_ranks:
  Go:
    "1": 1
`

func TestDecode(t *testing.T) {
	convey.Convey("Given a conference document", t, func() {
		p, err := problemfile.Decode(strings.NewReader(conference))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the facts are read", func() {
			convey.So(p.Days, convey.ShouldResemble, []model.Day{{Index: 0, Name: "Monday"}, {Index: 1, Name: "Tuesday"}})
			convey.So(p.Timeslots, convey.ShouldHaveLength, 3)
			convey.So(p.Timeslots[2], convey.ShouldResemble, model.Timeslot{Day: 1, Start: "09:00", End: "10:00"})
			convey.So(p.Rooms, convey.ShouldResemble, []model.Room{{Name: "Main"}, {Name: "Side"}})
			convey.So(p.FlowRanks, convey.ShouldResemble, map[string]map[string]int{"Go": {"1": 1}})
		})

		convey.Convey("Then talks carry levels and ranks", func() {
			convey.So(p.Talks, convey.ShouldHaveLength, 3)
			convey.So(p.Talks[0].Level, convey.ShouldEqual, model.LevelBeginner)
			convey.So(p.Talks[1].Level, convey.ShouldEqual, model.LevelAdvanced)
			convey.So(p.Talks[2].Level, convey.ShouldEqual, model.LevelIntermediate)
			convey.So(p.Talks[0].FlowRank, convey.ShouldBeNil)
			convey.So(*p.Talks[1].FlowRank, convey.ShouldEqual, 2)
		})

		convey.Convey("Then undeclared speakers and tracks are added once", func() {
			names := make([]string, 0, len(p.Speakers))
			for _, s := range p.Speakers {
				names = append(names, s.Name)
			}
			convey.So(names, convey.ShouldResemble, []string{"Ada Lovelace", "Rob", "Ken"})
			convey.So(p.Speakers[0].AvailableDays, convey.ShouldResemble, []int{1})
			convey.So(p.Tracks, convey.ShouldResemble, []model.Track{{Name: "Go"}, {Name: "Tools"}})
		})

		convey.Convey("Then the problem builds an instance", func() {
			inst, err := model.NewInstance(p)
			convey.So(err, convey.ShouldBeNil)
			convey.So(inst.NumTalks(), convey.ShouldEqual, 3)
			convey.So(inst.Capacity(), convey.ShouldEqual, 6)
			convey.So(inst.MultiDay(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given malformed YAML", t, func() {
		_, err := problemfile.Decode(strings.NewReader("talks: [ {id: 1"))
		convey.So(errors.Is(err, problemfile.ErrLoadProblem), convey.ShouldBeTrue)
	})

	convey.Convey("Given a field of the wrong shape", t, func() {
		_, err := problemfile.Decode(strings.NewReader("timeslots:\n  - {day: monday}\n"))
		convey.So(errors.Is(err, problemfile.ErrLoadProblem), convey.ShouldBeTrue)
	})

	convey.Convey("Given an empty document", t, func() {
		p, err := problemfile.Decode(strings.NewReader(""))
		convey.So(err, convey.ShouldBeNil)
		convey.So(p.Talks, convey.ShouldBeEmpty)
	})
}

func TestLoad(t *testing.T) {
	convey.Convey("Given a problem file on disk", t, func() {
		path := filepath.Join(t.TempDir(), "problem.yaml")
		convey.So(os.WriteFile(path, []byte(conference), 0o600), convey.ShouldBeNil)

		p, err := problemfile.Load(path)
		convey.So(err, convey.ShouldBeNil)
		convey.So(p.Talks, convey.ShouldHaveLength, 3)
	})

	convey.Convey("Given a missing file", t, func() {
		_, err := problemfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		convey.So(errors.Is(err, problemfile.ErrLoadProblem), convey.ShouldBeTrue)
	})
}
