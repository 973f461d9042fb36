package inject

import (
	"context"

	"go.viam.com/reach/plugins"
	"go.viam.com/reach/spatialmath"
)

// IKSolver is an injected IK solver.
type IKSolver struct {
	plugins.IKSolver
	JointNamesFunc func() []string
	SolveFunc      func(ctx context.Context, target spatialmath.Pose, seed map[string]float64) ([][]float64, error)
}

// JointNames calls the injected JointNames or the real version.
func (s *IKSolver) JointNames() []string {
	if s.JointNamesFunc == nil {
		return s.IKSolver.JointNames()
	}
	return s.JointNamesFunc()
}

// Solve calls the injected Solve or the real version.
func (s *IKSolver) Solve(ctx context.Context, target spatialmath.Pose, seed map[string]float64) ([][]float64, error) {
	if s.SolveFunc == nil {
		return s.IKSolver.Solve(ctx, target, seed)
	}
	return s.SolveFunc(ctx, target, seed)
}
