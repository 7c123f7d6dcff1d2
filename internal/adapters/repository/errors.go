package repository

import "errors"

// Sentinel kinds for outcome store errors.
var (
	ErrNotFound     = errors.New("no start recorded")
	ErrInvalidLimit = errors.New("invalid limit")
)
