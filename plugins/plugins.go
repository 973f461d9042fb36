// Package plugins defines the strategies a reach study is assembled from. Implementations are
// selected by name through a registry and must be safe for concurrent use; the engine calls
// IKSolver and Evaluator from many workers at once.
package plugins

import (
	"context"

	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/spatialmath"
)

// IKSolver computes joint solutions placing the end effector at a target pose.
type IKSolver interface {
	// JointNames returns the ordered joint names every solution is expressed in.
	JointNames() []string
	// Solve returns zero or more candidate solutions for the target, expressed in the robot base
	// frame. The seed maps joint names to starting values. No solutions means unreachable.
	Solve(ctx context.Context, target spatialmath.Pose, seed map[string]float64) ([][]float64, error)
}

// Evaluator scores a joint solution; higher is better. It must be a pure function of its input.
type Evaluator interface {
	CalculateScore(ctx context.Context, jointPositions map[string]float64) (float64, error)
}

// TargetPoseGenerator produces the finite set of poses a study samples.
type TargetPoseGenerator interface {
	Generate(ctx context.Context) ([]spatialmath.Pose, error)
}

// Display visualizes a study. Every method is a side effect; the engine ignores the outcome.
type Display interface {
	ShowEnvironment()
	UpdateRobotPose(jointPositions map[string]float64)
	ShowReachNeighborhood(neighborhood []reachdb.Record)
	ShowResults(db *reachdb.Database)
}

// Logger receives study progress and results. The engine serializes calls into a Logger.
type Logger interface {
	SetMaxProgress(total int)
	PrintProgress(current int)
	PrintResults(results reachdb.StudyResults)
	Print(msg string)
}
