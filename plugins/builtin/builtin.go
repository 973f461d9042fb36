// Package builtin provides the plugins a study can be assembled from without writing code: simple
// closed-form IK solvers, scoring functions, pose set generators, displays drawing to logs, text
// or image files, and progress loggers.
package builtin

import (
	"go.viam.com/reach/registry"
)

// Plugin names.
const (
	FixedIKSolverName     = "fixed"
	SphericalIKSolverName = "spherical"

	ConstantEvaluatorName    = "constant"
	JointLimitsEvaluatorName = "joint_limits"

	MatricesGeneratorName   = "matrices"
	GridGeneratorName       = "grid"
	PointsFileGeneratorName = "points_file"

	NoopDisplayName = "noop"
	LogDisplayName  = "log"
	TextDisplayName = "text"
	PlotDisplayName = "plot"

	ConsoleLoggerName = "console"
	LogLoggerName     = "log"
)

// Register adds every built-in plugin to r.
func Register(r *registry.Registry) {
	r.RegisterIKSolver(FixedIKSolverName, newFixedIKSolver)
	r.RegisterIKSolver(SphericalIKSolverName, newSphericalIKSolver)

	r.RegisterEvaluator(ConstantEvaluatorName, newConstantEvaluator)
	r.RegisterEvaluator(JointLimitsEvaluatorName, newJointLimitsEvaluator)

	r.RegisterTargetPoseGenerator(MatricesGeneratorName, newMatricesGenerator)
	r.RegisterTargetPoseGenerator(GridGeneratorName, newGridGenerator)
	r.RegisterTargetPoseGenerator(PointsFileGeneratorName, newPointsFileGenerator)

	r.RegisterDisplay(NoopDisplayName, newNoopDisplay)
	r.RegisterDisplay(LogDisplayName, newLogDisplay)
	r.RegisterDisplay(TextDisplayName, newTextDisplay)
	r.RegisterDisplay(PlotDisplayName, newPlotDisplay)

	r.RegisterLogger(ConsoleLoggerName, newConsoleLogger)
	r.RegisterLogger(LogLoggerName, newLogLogger)
}

// NewRegistry returns a registry holding the built-in plugins.
func NewRegistry(env registry.Env) *registry.Registry {
	r := registry.New(env)
	Register(r)
	return r
}
