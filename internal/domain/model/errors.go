package model

import "errors"

// ErrInvalidProblem is returned when supplied entities violate a structural
// invariant of the problem. Callers match it with errors.Is.
var ErrInvalidProblem = errors.New("invalid problem")
