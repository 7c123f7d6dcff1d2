// Package model contains the problem facts of a conference schedule and the
// indexed instance the solver works on.
package model

import (
	"strconv"
	"strings"
)

// Level is the ordinal audience level of a talk.
type Level int

// Audience levels in educational order.
const (
	LevelBeginner     Level = 1
	LevelIntermediate Level = 2
	LevelAdvanced     Level = 3
)

// ParseLevel maps a level label to its rank. Unknown labels are intermediate.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BEGINNER":
		return LevelBeginner
	case "ADVANCED":
		return LevelAdvanced
	default:
		return LevelIntermediate
	}
}

func (l Level) String() string {
	switch l {
	case LevelBeginner:
		return "BEGINNER"
	case LevelAdvanced:
		return "ADVANCED"
	case LevelIntermediate:
		return "INTERMEDIATE"
	default:
		return "LEVEL(" + strconv.Itoa(int(l)) + ")"
	}
}

// Day gives a display name to a day index.
type Day struct {
	Index int
	Name  string
}

// Timeslot is identified by (Day, Start, End). Times are "HH:MM".
type Timeslot struct {
	Day   int
	Start string
	End   string
}

// Room is identified by its name.
type Room struct {
	Name string
}

// Speaker holds the days on which a speaker may present. An empty
// AvailableDays means available every day.
type Speaker struct {
	Name          string
	AvailableDays []int
}

// Track is identified by its name.
type Track struct {
	Name string
}

// Talk is one unit of assignment. Level zero is read as intermediate.
type Talk struct {
	ID       string
	Title    string
	Summary  string
	Track    string
	Level    Level
	Speakers []string
	FlowRank *int
}

// Problem is the fully parsed input of one solve.
type Problem struct {
	Days      []Day
	Timeslots []Timeslot
	Rooms     []Room
	Speakers  []Speaker
	Tracks    []Track
	Talks     []Talk

	// FlowRanks maps track name to talk id to rank. Entries override the
	// per-talk FlowRank.
	FlowRanks map[string]map[string]int
}

// NormalizeName is the identity of a speaker name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CompareIDs orders talk ids naturally: numeric ids numerically and before
// any non-numeric id, the rest lexicographically.
func CompareIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return strings.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, false
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 || len(m) != 2 {
		return 0, false
	}
	return hh*60 + mm, true
}
