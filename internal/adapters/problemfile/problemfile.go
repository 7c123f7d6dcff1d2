// Package problemfile reads a conference problem instance from YAML.
//
//	days:
//	  - {index: 0, name: Monday}
//	timeslots:
//	  - {day: 0, start: "09:00", end: "10:00"}
//	rooms: [Main, Side]
//	speakers:
//	  - {name: Ada Lovelace, available_days: [0]}
//	tracks: [Go]
//	talks:
//	  - {id: "1", title: Generics, track: Go, level: beginner, speakers: [Ada Lovelace]}
//	flow_ranks:
//	  Go: {"1": 1}
//
// Speakers referenced by talks but not declared are available every day.
// Tracks referenced by talks but not declared are added.
package problemfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"

	"github.com/okian/talksched/internal/domain/model"
)

// ErrLoadProblem wraps every read or decode failure.
var ErrLoadProblem = errors.New("load problem failed")

type document struct {
	Days      []dayDoc                  `koanf:"days"`
	Timeslots []slotDoc                 `koanf:"timeslots"`
	Rooms     []string                  `koanf:"rooms"`
	Speakers  []speakerDoc              `koanf:"speakers"`
	Tracks    []string                  `koanf:"tracks"`
	Talks     []talkDoc                 `koanf:"talks"`
	FlowRanks map[string]map[string]int `koanf:"flow_ranks"`
}

type dayDoc struct {
	Index int    `koanf:"index"`
	Name  string `koanf:"name"`
}

type slotDoc struct {
	Day   int    `koanf:"day"`
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

type speakerDoc struct {
	Name          string `koanf:"name"`
	AvailableDays []int  `koanf:"available_days"`
}

type talkDoc struct {
	ID       string   `koanf:"id"`
	Title    string   `koanf:"title"`
	Summary  string   `koanf:"summary"`
	Track    string   `koanf:"track"`
	Level    string   `koanf:"level"`
	Speakers []string `koanf:"speakers"`
	FlowRank *int     `koanf:"flow_rank"`
}

// Load reads the problem file at path.
func Load(path string) (model.Problem, error) {
	return load(file.Provider(path), path)
}

// Decode reads a problem from r.
func Decode(r io.Reader) (model.Problem, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return model.Problem{}, fmt.Errorf("%w: %v", ErrLoadProblem, err)
	}
	return load(bytesProvider(b), "input")
}

func load(p koanf.Provider, name string) (model.Problem, error) {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return model.Problem{}, fmt.Errorf("%w: %s: %v", ErrLoadProblem, name, err)
	}
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return model.Problem{}, fmt.Errorf("%w: %s: %v", ErrLoadProblem, name, err)
	}
	return doc.problem(), nil
}

func (d document) problem() model.Problem {
	p := model.Problem{
		Days: lo.Map(d.Days, func(x dayDoc, _ int) model.Day {
			return model.Day{Index: x.Index, Name: x.Name}
		}),
		Timeslots: lo.Map(d.Timeslots, func(x slotDoc, _ int) model.Timeslot {
			return model.Timeslot{Day: x.Day, Start: x.Start, End: x.End}
		}),
		Rooms: lo.Map(d.Rooms, func(name string, _ int) model.Room {
			return model.Room{Name: name}
		}),
		Speakers: lo.Map(d.Speakers, func(x speakerDoc, _ int) model.Speaker {
			return model.Speaker{Name: x.Name, AvailableDays: x.AvailableDays}
		}),
		Talks: lo.Map(d.Talks, func(x talkDoc, _ int) model.Talk {
			return model.Talk{
				ID:       x.ID,
				Title:    x.Title,
				Summary:  x.Summary,
				Track:    x.Track,
				Level:    model.ParseLevel(x.Level),
				Speakers: x.Speakers,
				FlowRank: x.FlowRank,
			}
		}),
		FlowRanks: d.FlowRanks,
	}

	declared := lo.SliceToMap(d.Speakers, func(x speakerDoc) (string, bool) {
		return model.NormalizeName(x.Name), true
	})
	for _, t := range d.Talks {
		for _, s := range t.Speakers {
			if n := model.NormalizeName(s); n != "" && !declared[n] {
				declared[n] = true
				p.Speakers = append(p.Speakers, model.Speaker{Name: s})
			}
		}
	}

	tracks := append([]string{}, d.Tracks...)
	for _, t := range d.Talks {
		tracks = append(tracks, t.Track)
	}
	tracks = lo.Compact(lo.Uniq(tracks))
	p.Tracks = lo.Map(tracks, func(name string, _ int) model.Track { return model.Track{Name: name} })
	return p
}

// bytesProvider serves an in-memory document to koanf.
type bytesProvider []byte

func (b bytesProvider) ReadBytes() ([]byte, error) { return b, nil }

func (b bytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("bytes provider does not support Read")
}
