package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/talksched/internal/adapters/problemfile"
	service "github.com/okian/talksched/internal/app"
	"github.com/okian/talksched/internal/config"
)

const twoDays = `
days:
  - {index: 0, name: Monday}
  - {index: 1, name: Tuesday}
timeslots:
  - {day: 0, start: "09:00", end: "09:45"}
  - {day: 0, start: "10:00", end: "10:45"}
  - {day: 0, start: "11:00", end: "11:45"}
  - {day: 1, start: "09:00", end: "09:45"}
  - {day: 1, start: "10:00", end: "10:45"}
  - {day: 1, start: "11:00", end: "11:45"}
rooms: [Hall, Studio]
speakers:
  - {name: Grace, available_days: [1]}
talks:
  - {id: "1", title: Intro to Go, track: Go, level: beginner, speakers: [Rob]}
  - {id: "2", title: Generics, track: Go, level: intermediate, speakers: [Ian]}
  - {id: "3", title: Runtime internals, track: Go, level: advanced, speakers: [Austin]}
  - {id: "4", title: Compilers, track: Languages, level: advanced, speakers: [Grace]}
  - {id: "5", title: Parsing, track: Languages, level: beginner, speakers: [Grace, Niklaus]}
  - {id: "6", title: Type systems, track: Languages, level: intermediate, speakers: [Robin]}
  - {id: "7", title: Profiling, track: Ops, level: intermediate, speakers: [Rob]}
  - {id: "8", title: Tracing, track: Ops, level: beginner, speakers: [Austin]}
flow_ranks:
  Languages: {"5": 1, "6": 2, "4": 3}
`

func TestService_Integration(t *testing.T) {
	Convey("Given a two-day conference read from YAML", t, func() {
		p, err := problemfile.Decode(strings.NewReader(twoDays))
		So(err, ShouldBeNil)

		cfg := config.New()
		cfg.TimeLimit = 2 * time.Second
		cfg.StagnationWindow = 300
		cfg.Starts = 3
		cfg.Workers = 3

		res, err := service.New(service.WithConfig(cfg)).Solve(context.Background(), p)
		So(err, ShouldBeNil)

		Convey("Then every talk is placed without hard violations", func() {
			So(res.Feasible, ShouldBeTrue)
			So(res.Placed, ShouldHaveLength, 8)
			So(res.Violations, ShouldBeEmpty)
		})

		Convey("Then the hard rules hold on the extracted schedule", func() {
			type cell struct {
				day   int
				start string
			}
			rooms := map[cell]map[string]bool{}
			speakers := map[cell]map[string]bool{}
			tracks := map[cell]map[string]bool{}
			for _, e := range res.Placed {
				c := cell{e.Day, e.Start}
				if rooms[c] == nil {
					rooms[c], speakers[c], tracks[c] = map[string]bool{}, map[string]bool{}, map[string]bool{}
				}
				So(rooms[c][e.Room], ShouldBeFalse)
				So(tracks[c][e.Track], ShouldBeFalse)
				rooms[c][e.Room] = true
				tracks[c][e.Track] = true
				for _, s := range e.Speakers {
					So(speakers[c][s], ShouldBeFalse)
					speakers[c][s] = true
				}
				if e.TalkID == "4" || e.TalkID == "5" {
					So(e.DayName, ShouldEqual, "Tuesday")
				}
			}
		})

		Convey("Then the schedule is ordered by day, time and room", func() {
			for i := 1; i < len(res.Placed); i++ {
				prev, cur := res.Placed[i-1], res.Placed[i]
				key := func(e service.Entry) string { return string(rune('0'+e.Day)) + e.Start + e.Room }
				So(key(prev) < key(cur), ShouldBeTrue)
			}
		})
	})
}
