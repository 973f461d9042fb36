package inject

import (
	"context"

	"go.viam.com/reach/plugins"
)

// Evaluator is an injected evaluator.
type Evaluator struct {
	plugins.Evaluator
	CalculateScoreFunc func(ctx context.Context, jointPositions map[string]float64) (float64, error)
}

// CalculateScore calls the injected CalculateScore or the real version.
func (e *Evaluator) CalculateScore(ctx context.Context, jointPositions map[string]float64) (float64, error) {
	if e.CalculateScoreFunc == nil {
		return e.Evaluator.CalculateScore(ctx, jointPositions)
	}
	return e.CalculateScoreFunc(ctx, jointPositions)
}
