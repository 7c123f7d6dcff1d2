package worker

import (
	"github.com/okian/talksched/pkg/logger"
)

// Option applies a configuration option to a StartWorker.
type Option func(*StartWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *StartWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *StartWorker) {
		if l != nil {
			w.logger = l
		}
	}
}
