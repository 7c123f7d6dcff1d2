package solver_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/talksched/internal/domain/model"
	"github.com/okian/talksched/internal/domain/model/modeltest"
	"github.com/okian/talksched/internal/domain/schedule"
	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/internal/solver"
	. "github.com/smartystreets/goconvey/convey"
)

func options(mode solver.Mode) solver.Options {
	o := solver.DefaultOptions()
	o.Mode = mode
	o.TimeLimit = 300 * time.Millisecond
	o.StagnationWindow = 200
	return o
}

func solve(inst *model.Instance, o solver.Options) solver.Outcome {
	s, err := solver.New(inst, o, nil)
	So(err, ShouldBeNil)
	return s.Solve(context.Background(), solver.Job{Start: 0, Seed: o.Seed, RunID: "test"})
}

// restore rebuilds the best state of an outcome.
func restore(inst *model.Instance, out solver.Outcome) *schedule.Assignment {
	a := schedule.New(inst)
	a.Restore(out.Best)
	return a
}

func checkHardInvariants(inst *model.Instance, a *schedule.Assignment) {
	for x := 0; x < inst.NumTalks(); x++ {
		if !a.Placed(x) {
			continue
		}
		So(inst.Allowed(x, a.Slot(x)), ShouldBeTrue)
		for y := x + 1; y < inst.NumTalks(); y++ {
			if !a.Placed(y) || a.Slot(x) != a.Slot(y) {
				continue
			}
			So(a.Room(x), ShouldNotEqual, a.Room(y))
			So(inst.SharesSpeaker(x, y), ShouldBeFalse)
			So(inst.SameTrack(x, y), ShouldBeFalse)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	Convey("Given solver options", t, func() {
		So(solver.DefaultOptions().Validate(), ShouldBeNil)

		bad := map[string]func(*solver.Options){
			"mode":        func(o *solver.Options) { o.Mode = "greedy" },
			"time limit":  func(o *solver.Options) { o.TimeLimit = 0 },
			"stagnation":  func(o *solver.Options) { o.StagnationWindow = 0 },
			"sample size": func(o *solver.Options) { o.SampleSize = 0 },
			"tenure":      func(o *solver.Options) { o.TabuTenure = -1 },
			"temperature": func(o *solver.Options) { o.TempLow = 5 },
			"cooling":     func(o *solver.Options) { o.Cooling = 1.5 },
			"no cooling without tabu": func(o *solver.Options) {
				o.Cooling, o.TabuTenure, o.TabuTenureRand = 1, 0, 0
			},
			"hard scale":  func(o *solver.Options) { o.HardScale = 0 },
			"node limit":  func(o *solver.Options) { o.ExactNodeLimit = 0 },
			"weight":      func(o *solver.Options) { o.Weights.TrackDay = -2 },
		}
		for name, mutate := range bad {
			Convey("Then an invalid "+name+" is rejected", func() {
				o := solver.DefaultOptions()
				mutate(&o)
				err := o.Validate()
				So(errors.Is(err, solver.ErrInvalidOptions), ShouldBeTrue)

				_, err = solver.New(modeltest.ScenarioA().Instance(), o, nil)
				So(errors.Is(err, solver.ErrInvalidOptions), ShouldBeTrue)
			})
		}

		Convey("Then a constant temperature is accepted with tabu memory", func() {
			o := solver.DefaultOptions()
			o.Cooling, o.TabuTenure, o.TabuTenureRand = 1, 0, 2
			So(o.Validate(), ShouldBeNil)
		})

		Convey("Then tabu can be disabled while cooling", func() {
			o := solver.DefaultOptions()
			o.TabuTenure, o.TabuTenureRand = 0, 0
			So(o.Validate(), ShouldBeNil)
		})
	})
}

func TestScenarios(t *testing.T) {
	for _, mode := range []solver.Mode{solver.ModeHeuristic, solver.ModeExact} {
		Convey(fmt.Sprintf("Given the %s mode", mode), t, func() {
			o := options(mode)

			Convey("Scenario A finds a feasible full placement", func() {
				inst := modeltest.ScenarioA().Instance()
				out := solve(inst, o)
				So(out.Score, ShouldResemble, scoring.Score{})
				So(out.Unplaced, ShouldEqual, 0)
				So(out.Feasible(), ShouldBeTrue)
				checkHardInvariants(inst, restore(inst, out))
				if mode == solver.ModeExact {
					So(out.Termination, ShouldEqual, solver.TerminationProvenOptimal)
				} else {
					So(out.Termination, ShouldEqual, solver.TerminationConverged)
				}
			})

			Convey("Scenario B reports a hard violation", func() {
				inst := modeltest.ScenarioB().Instance()
				out := solve(inst, o)
				So(out.Score.Hard, ShouldBeLessThanOrEqualTo, -1)
				So(out.Feasible(), ShouldBeFalse)
				if mode == solver.ModeExact {
					So(out.Termination, ShouldEqual, solver.TerminationProvenInfeasible)
				} else {
					// small neighborhood: the local optimum ends the search
					So(out.Termination, ShouldEqual, solver.TerminationConverged)
				}
			})

			Convey("Scenario C orders talks by level", func() {
				inst := modeltest.ScenarioC().Instance()
				out := solve(inst, o)
				a := restore(inst, out)
				So(out.Score, ShouldResemble, scoring.Score{})
				// beginner "1", intermediate "3", advanced "2"
				So(a.Slot(0), ShouldBeLessThan, a.Slot(2))
				So(a.Slot(2), ShouldBeLessThan, a.Slot(1))
			})

			Convey("Scenario D honors the flow rank", func() {
				inst := modeltest.ScenarioD().Instance()
				out := solve(inst, o)
				a := restore(inst, out)
				So(out.Score, ShouldResemble, scoring.Score{Soft: -3})
				// ranks: "2" first, then "3", then "1"
				So(a.Slot(1), ShouldBeLessThan, a.Slot(2))
				So(a.Slot(2), ShouldBeLessThan, a.Slot(0))
			})

			Convey("Scenario E leaves the talk unplaced", func() {
				inst := modeltest.ScenarioE().Instance()
				out := solve(inst, o)
				So(out.Unplaced, ShouldEqual, 1)
				So(out.Score.Hard, ShouldEqual, 0)
				So(out.Feasible(), ShouldBeFalse)
				So(restore(inst, out).Placed(0), ShouldBeFalse)
				if mode == solver.ModeExact {
					So(out.Termination, ShouldEqual, solver.TerminationProvenInfeasible)
				}
			})

			Convey("An empty instance is trivially feasible", func() {
				inst, err := model.NewInstance(model.Problem{})
				So(err, ShouldBeNil)
				out := solve(inst, o)
				So(out.Feasible(), ShouldBeTrue)
				So(out.Trace[len(out.Trace)-1], ShouldEqual, solver.Done)
			})

			Convey("Talks without rooms stay unplaced", func() {
				p := modeltest.ScenarioA().Problem()
				p.Rooms = nil
				inst, err := model.NewInstance(p)
				So(err, ShouldBeNil)
				out := solve(inst, o)
				So(out.Unplaced, ShouldEqual, 4)
				So(out.Feasible(), ShouldBeFalse)
			})
		})
	}
}

func TestCapacityOverflow(t *testing.T) {
	Convey("Given more talks than cells", t, func() {
		b := modeltest.New().Slots(0, 2).Rooms("A")
		for i := 1; i <= 3; i++ {
			id := fmt.Sprint(i)
			b.Track("T" + id).Speaker("S"+id).Talk(id, "T"+id, model.LevelBeginner, "S"+id)
		}
		inst := b.Instance()

		Convey("Then the least constrained talk overflows and hard stays zero", func() {
			out := solve(inst, options(solver.ModeHeuristic))
			So(out.Unplaced, ShouldEqual, 1)
			So(out.Score.Hard, ShouldEqual, 0)
			So(out.Feasible(), ShouldBeFalse)
			checkHardInvariants(inst, restore(inst, out))
		})

		Convey("Then exact mode proves infeasibility", func() {
			out := solve(inst, options(solver.ModeExact))
			So(out.Termination, ShouldEqual, solver.TerminationProvenInfeasible)
			So(out.Unplaced, ShouldEqual, 1)
		})
	})
}

// conference is a two-day instance that is comfortably feasible.
func conference() *model.Instance {
	b := modeltest.New().Slots(0, 4).Slots(1, 3).Rooms("Main", "Side", "Lab")
	levels := []model.Level{model.LevelAdvanced, model.LevelBeginner, model.LevelIntermediate}
	for k := 1; k <= 4; k++ {
		b.Track(fmt.Sprintf("T%d", k))
	}
	for i := 1; i <= 12; i++ {
		b.Speaker(fmt.Sprintf("S%d", i))
	}
	b.Speaker("Shared", 1)
	for i := 1; i <= 12; i++ {
		speakers := []string{fmt.Sprintf("S%d", i)}
		if i%5 == 0 {
			speakers = append(speakers, "Shared")
		}
		b.Talk(fmt.Sprint(i), fmt.Sprintf("T%d", 1+i%4), levels[i%3], speakers...)
	}
	return b.Instance()
}

// small is a single-day instance small enough for exhaustive proof.
func small() *model.Instance {
	return modeltest.New().Slots(0, 3).Rooms("A", "B").
		Track("X").Track("Y").
		Speaker("a").Speaker("b").Speaker("c").Speaker("d").Speaker("e").
		Talk("1", "X", model.LevelAdvanced, "a").
		Talk("2", "X", model.LevelBeginner, "b").
		Talk("3", "X", model.LevelIntermediate, "c").
		Talk("4", "Y", model.LevelIntermediate, "d", "b").
		Talk("5", "Y", model.LevelBeginner, "e").
		Instance()
}

func TestDeterminism(t *testing.T) {
	cases := []struct {
		mode solver.Mode
		inst *model.Instance
	}{
		{solver.ModeHeuristic, conference()},
		{solver.ModeExact, small()},
	}
	for _, tc := range cases {
		Convey(fmt.Sprintf("Given two %s runs with the same seed", tc.mode), t, func() {
			inst := tc.inst
			o := options(tc.mode)
			o.TimeLimit = 10 * time.Second
			first := solve(inst, o)
			second := solve(inst, o)

			Convey("Then they end in the same state", func() {
				So(first.Termination, ShouldNotEqual, solver.TerminationTimeExpired)
				So(second.Score, ShouldResemble, first.Score)
				So(second.Best, ShouldResemble, first.Best)
				So(first.Score.Hard, ShouldEqual, 0)
				checkHardInvariants(inst, restore(inst, first))
			})

			Convey("Then the best score is the full score of the best state", func() {
				calc := scoring.New(inst, scoring.WithWeights(o.Weights))
				So(calc.Full(restore(inst, first)), ShouldResemble, first.Score)
			})

			Convey("Then the best never regresses below construction", func() {
				So(first.Score.Compare(first.Initial), ShouldBeGreaterThanOrEqualTo, 0)
			})
		})
	}

	Convey("Given the small instance in both modes", t, func() {
		o := options(solver.ModeExact)
		exact := solve(small(), o)
		o.Mode = solver.ModeHeuristic
		heuristic := solve(small(), o)

		Convey("Then exact proves an optimum the heuristic cannot beat", func() {
			So(exact.Termination, ShouldEqual, solver.TerminationProvenOptimal)
			So(heuristic.Score.Better(exact.Score), ShouldBeFalse)
		})
	})
}

func TestCancellation(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		inst := conference()
		s, err := solver.New(inst, options(solver.ModeHeuristic), nil)
		So(err, ShouldBeNil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := s.Solve(ctx, solver.Job{Seed: 1})

		Convey("Then the construction is returned as time expired", func() {
			So(out.Termination, ShouldEqual, solver.TerminationTimeExpired)
			So(out.Score, ShouldResemble, out.Initial)
			So(out.Trace, ShouldResemble, []solver.Phase{
				solver.Unsolved, solver.Constructing, solver.Improving, solver.TimeExpired, solver.Done,
			})
			So(out.Unplaced, ShouldEqual, 0)
		})
	})

	Convey("Given an exact search with a tiny node budget", t, func() {
		o := options(solver.ModeExact)
		o.ExactNodeLimit = 3
		out := solve(conference(), o)

		Convey("Then it stops as time expired with the incumbent", func() {
			So(out.Termination, ShouldEqual, solver.TerminationTimeExpired)
			So(out.Stats.Nodes, ShouldBeLessThanOrEqualTo, 3)
			So(out.Score, ShouldResemble, out.Initial)
		})
	})
}

func TestCustomConstraint(t *testing.T) {
	Convey("Given a constraint that bans the first slot", t, func() {
		inst := modeltest.ScenarioC().Instance()
		first := scoring.Constraint{
			Name:   "no_first_slot",
			Kind:   scoring.Hard,
			Weight: 1,
			Unary: func(_ *model.Instance, x scoring.Placement) int {
				if x.Slot == 0 {
					return 1
				}
				return 0
			},
		}
		s, err := solver.New(inst, options(solver.ModeHeuristic), nil, first)
		So(err, ShouldBeNil)
		out := s.Solve(context.Background(), solver.Job{Seed: 42})

		Convey("Then the unavoidable violation is counted", func() {
			So(out.Score.Hard, ShouldEqual, -1)
			So(s.Calculator().Constraints(), ShouldHaveLength, 9)
		})
	})
}

func TestOutcomeOrdering(t *testing.T) {
	Convey("Given outcomes of several starts", t, func() {
		a := solver.Outcome{Start: 0, Score: scoring.Score{Soft: -2}}
		b := solver.Outcome{Start: 1, Score: scoring.Score{Soft: -1}}
		c := solver.Outcome{Start: 2, Score: scoring.Score{Soft: -1}}

		So(b.Better(a), ShouldBeTrue)
		So(b.Better(c), ShouldBeTrue)
		So(c.Better(b), ShouldBeFalse)
	})
}

func TestLocalOptimum(t *testing.T) {
	Convey("Given an instance whose conflict cannot be resolved", t, func() {
		inst := modeltest.ScenarioB().Instance()
		o := options(solver.ModeHeuristic)

		Convey("When the neighborhood is enumerated", func() {
			out := solve(inst, o)

			Convey("Then the search converges once cooled down", func() {
				So(out.Termination, ShouldEqual, solver.TerminationConverged)
				So(out.Score.Hard, ShouldEqual, -1)
				So(out.Stats.Duration, ShouldBeLessThan, o.TimeLimit)
			})
		})

		Convey("When the neighborhood is only sampled", func() {
			o.ExhaustiveLimit = 0
			out := solve(inst, o)

			Convey("Then it keeps searching until the deadline", func() {
				So(out.Termination, ShouldEqual, solver.TerminationTimeExpired)
				So(out.Score.Hard, ShouldEqual, -1)
			})
		})
	})
}
