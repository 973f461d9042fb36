package inject

import (
	"context"

	"go.viam.com/reach/plugins"
	"go.viam.com/reach/spatialmath"
)

// TargetPoseGenerator is an injected target pose generator.
type TargetPoseGenerator struct {
	plugins.TargetPoseGenerator
	GenerateFunc func(ctx context.Context) ([]spatialmath.Pose, error)
}

// Generate calls the injected Generate or the real version.
func (g *TargetPoseGenerator) Generate(ctx context.Context) ([]spatialmath.Pose, error) {
	if g.GenerateFunc == nil {
		return g.TargetPoseGenerator.Generate(ctx)
	}
	return g.GenerateFunc(ctx)
}
