package bench

import (
	"fmt"

	"github.com/ctnbench/relaysplit/internal/split"
)

// Params configures the sequence benchmark.
type Params struct {
	// Dimensions is the width D of the state and vision vectors.
	Dimensions int `json:"dimensions" yaml:"dimensions"`
	// Actions is the number of actions in the sequence; the last one routes
	// vision into state.
	Actions int `json:"actions" yaml:"actions"`
	// Duration is the simulated time in seconds. It is recorded only.
	Duration float64 `json:"duration" yaml:"duration"`
	// Start is the index of the state presented on the vision input.
	Start int `json:"start" yaml:"start"`
	// MaxWidth is the split bound.
	MaxWidth int `json:"max_width" yaml:"max_width"`
	// Seed makes the generated state vectors reproducible.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// DefaultParams returns the standard benchmark parameters.
func DefaultParams() Params {
	return Params{
		Dimensions: 32,
		Actions:    5,
		Duration:   1.0,
		Start:      0,
		MaxWidth:   split.DefaultMaxWidth,
		Seed:       1,
	}
}

// Validate checks that the parameters describe a buildable model.
func (p Params) Validate() error {
	if p.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", p.Dimensions)
	}
	if p.Actions < 2 {
		return fmt.Errorf("actions must be at least 2, got %d", p.Actions)
	}
	if p.Start < 0 || p.Start >= p.Actions {
		return fmt.Errorf("start must be in [0, %d), got %d", p.Actions, p.Start)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", p.Duration)
	}
	if p.MaxWidth <= 0 {
		return fmt.Errorf("%w: %d", split.ErrInvalidWidth, p.MaxWidth)
	}
	return nil
}
