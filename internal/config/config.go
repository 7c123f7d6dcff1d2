// Package config defines the scheduler configuration, its defaults and
// loading.
//
// Conventions:
//   - New() builds a Config with the documented defaults.
//   - Load(ctx) layers a YAML file and environment variables on top.
//   - Validate() must pass before any search starts.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/okian/talksched/internal/domain/scoring"
	"github.com/okian/talksched/internal/solver"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// TimeLimit is the wall-clock budget of a solve, shared by all starts.
	TimeLimit time.Duration `koanf:"time_limit" validate:"gt=0"`

	// Mode selects heuristic search or exact branch and bound.
	Mode string `koanf:"mode" validate:"oneof=heuristic exact"`

	// RandomSeed seeds the first start; start i uses RandomSeed+i.
	RandomSeed int64 `koanf:"random_seed"`

	// Workers sets the number of goroutines running starts.
	Workers int `koanf:"workers" validate:"gte=1"`

	// Starts is the number of independent search starts.
	Starts int `koanf:"starts" validate:"gte=1"`

	StagnationWindow int64 `koanf:"stagnation_window" validate:"gte=1"`
	SampleSize       int   `koanf:"sample_size" validate:"gte=1"`
	ExhaustiveLimit  int   `koanf:"exhaustive_limit" validate:"gte=0"`

	TabuTenure     int `koanf:"tabu_tenure" validate:"gte=0"`
	TabuTenureRand int `koanf:"tabu_tenure_rand" validate:"gte=0"`

	// Annealing schedule.
	TempHigh float64 `koanf:"temp_high" validate:"gt=0"`
	TempLow  float64 `koanf:"temp_low" validate:"gt=0"`
	Cooling  float64 `koanf:"cooling" validate:"gt=0,lte=1"`

	ExactNodeLimit int64 `koanf:"exact_node_limit" validate:"gte=1"`

	// SoftWeights maps soft constraint names to weights. Missing keys keep
	// their defaults.
	SoftWeights map[string]int `koanf:"soft_weights" validate:"dive,gte=0"`
}

// New creates a Config with defaults.
func New() *Config {
	d := solver.DefaultOptions()
	return &Config{
		LogLevel:         "info",
		TimeLimit:        d.TimeLimit,
		Mode:             string(d.Mode),
		RandomSeed:       d.Seed,
		Workers:          runtime.NumCPU(),
		Starts:           1,
		StagnationWindow: d.StagnationWindow,
		SampleSize:       d.SampleSize,
		ExhaustiveLimit:  d.ExhaustiveLimit,
		TabuTenure:       d.TabuTenure,
		TabuTenureRand:   d.TabuTenureRand,
		TempHigh:         d.TempHigh,
		TempLow:          d.TempLow,
		Cooling:          d.Cooling,
		ExactNodeLimit:   d.ExactNodeLimit,
		SoftWeights:      d.Weights.Map(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration. Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s fails %q", ErrInvalidConfig, f.Namespace(), f.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.TempLow > c.TempHigh {
		return fmt.Errorf("%w: temp_low %g exceeds temp_high %g", ErrInvalidConfig, c.TempLow, c.TempHigh)
	}
	if c.Cooling == 1 && c.TabuTenure == 0 && c.TabuTenureRand == 0 {
		return fmt.Errorf("%w: cooling 1 without tabu tenure never stops cycling", ErrInvalidConfig)
	}
	if _, err := scoring.WeightsFromMap(c.SoftWeights); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SolverOptions converts the configuration into options for one start.
func (c *Config) SolverOptions() (solver.Options, error) {
	if err := c.Validate(); err != nil {
		return solver.Options{}, err
	}
	w, _ := scoring.WeightsFromMap(c.SoftWeights)
	o := solver.DefaultOptions()
	o.Mode = solver.Mode(c.Mode)
	o.TimeLimit = c.TimeLimit
	o.Seed = c.RandomSeed
	o.StagnationWindow = c.StagnationWindow
	o.SampleSize = c.SampleSize
	o.ExhaustiveLimit = c.ExhaustiveLimit
	o.TabuTenure = c.TabuTenure
	o.TabuTenureRand = c.TabuTenureRand
	o.TempHigh = c.TempHigh
	o.TempLow = c.TempLow
	o.Cooling = c.Cooling
	o.ExactNodeLimit = c.ExactNodeLimit
	o.Weights = w
	return o, nil
}
