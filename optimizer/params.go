package optimizer

import (
	"math"
)

const (
	defaultPatience         = 1
	defaultRandomCandidates = 4
)

// Parameters configure the optimizer. They are not modified once an optimizer is created.
type Parameters struct {
	// Radius bounds the neighborhood used to seed re-evaluation and the length of a single offset
	// step.
	Radius float64 `json:"radius"`
	// MaxSteps bounds the number of iterations, accepted or not.
	MaxSteps int `json:"max_steps"`
	// StepImprovementThreshold is the minimum gain in mean score needed to accept a step.
	StepImprovementThreshold float64 `json:"step_improvement_threshold"`
	// Patience is the number of consecutive improving but sub-threshold iterations after which
	// the optimizer considers itself converged. Zero means 1.
	Patience int `json:"patience,omitempty"`
	// RandomCandidates is the number of random offsets inside the radius ball tried on each
	// iteration in addition to the six axis-aligned ones.
	RandomCandidates int `json:"random_candidates"`
	// Seed makes the random candidates reproducible.
	Seed int64 `json:"seed"`
}

// DefaultParameters returns the parameters used when a config omits them.
func DefaultParameters() Parameters {
	return Parameters{
		Radius:                   0.2,
		MaxSteps:                 10,
		StepImprovementThreshold: 0.01,
		Patience:                 defaultPatience,
		RandomCandidates:         defaultRandomCandidates,
	}
}

// withDefaults fills unset optional fields.
func (p Parameters) withDefaults() Parameters {
	if p.Patience == 0 {
		p.Patience = defaultPatience
	}
	return p
}

// Validate ensures the parameters describe a runnable optimization.
func (p Parameters) Validate() error {
	p = p.withDefaults()
	if math.IsNaN(p.Radius) || math.IsInf(p.Radius, 0) || p.Radius <= 0 {
		return NewPreconditionError("radius must be positive and finite, got %v", p.Radius)
	}
	if p.MaxSteps < 0 {
		return NewPreconditionError("max_steps cannot be negative, got %d", p.MaxSteps)
	}
	if math.IsNaN(p.StepImprovementThreshold) || math.IsInf(p.StepImprovementThreshold, 0) ||
		p.StepImprovementThreshold < 0 {
		return NewPreconditionError("step_improvement_threshold must be non-negative and finite, got %v",
			p.StepImprovementThreshold)
	}
	if p.Patience < 1 {
		return NewPreconditionError("patience must be at least 1, got %d", p.Patience)
	}
	if p.RandomCandidates < 0 {
		return NewPreconditionError("random_candidates cannot be negative, got %d", p.RandomCandidates)
	}
	return nil
}
