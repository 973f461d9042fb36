// Package sampler evaluates the reachability of target poses by dispatching to an IK solver and
// an evaluator.
package sampler

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/reach/logging"
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/spatialmath"
)

// SampleError describes why a single pose could not be evaluated. Sample errors never abort a
// study; the pose is recorded as unreachable.
type SampleError struct {
	Stage string
	Pose  spatialmath.Pose
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("%s failed for pose %v: %v", e.Stage, e.Pose, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// Evaluator turns a target pose into a reach record. It holds no mutable state and is safe for
// concurrent use as long as its plugins are.
type Evaluator struct {
	solver     plugins.IKSolver
	evaluator  plugins.Evaluator
	jointNames []string
	logger     logging.Logger
}

// NewEvaluator returns an Evaluator using the given plugins.
func NewEvaluator(solver plugins.IKSolver, evaluator plugins.Evaluator, logger logging.Logger) (*Evaluator, error) {
	if solver == nil {
		return nil, errors.New("an IK solver is required")
	}
	if evaluator == nil {
		return nil, errors.New("an evaluator is required")
	}
	names := solver.JointNames()
	if len(names) == 0 {
		return nil, plugins.NewContractViolationError("ik_solver", "no joint names")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, plugins.NewContractViolationError("ik_solver", "duplicate joint name %q", name)
		}
		seen[name] = struct{}{}
	}
	return &Evaluator{
		solver:     solver,
		evaluator:  evaluator,
		jointNames: append([]string{}, names...),
		logger:     logger,
	}, nil
}

// JointNames returns the solver's joint names.
func (e *Evaluator) JointNames() []string {
	return append([]string{}, e.jointNames...)
}

// ZeroSeed returns a seed with every joint at zero.
func (e *Evaluator) ZeroSeed() map[string]float64 {
	seed := make(map[string]float64, len(e.jointNames))
	for _, name := range e.jointNames {
		seed[name] = 0
	}
	return seed
}

// JointPositions names the values of a solution.
func (e *Evaluator) JointPositions(solution []float64) map[string]float64 {
	positions := make(map[string]float64, len(e.jointNames))
	for i, name := range e.jointNames {
		positions[name] = solution[i]
	}
	return positions
}

// Evaluate scores a pose given in the study frame when the robot base sits at `offset`. The best
// scoring candidate solution is kept; candidates the evaluator fails on are skipped. A solver
// failure, or an evaluator failure on every candidate, produces an unreachable record and a nil
// error; only contract violations and context cancellation are returned.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	pose, offset spatialmath.Pose,
	seed map[string]float64,
) (reachdb.Record, error) {
	if err := ctx.Err(); err != nil {
		return reachdb.Record{}, err
	}
	if seed == nil {
		seed = e.ZeroSeed()
	}
	seedValues := make([]float64, len(e.jointNames))
	for i, name := range e.jointNames {
		seedValues[i] = seed[name]
	}
	target := spatialmath.Compose(spatialmath.InvertRigid(offset), pose)

	solutions, err := e.solve(ctx, target, seed)
	if err != nil {
		return e.failed(ctx, pose, seedValues, err)
	}

	var best []float64
	var scoreErr error
	bestScore := math.Inf(-1)
	for i, solution := range solutions {
		if len(solution) != len(e.jointNames) {
			return reachdb.Record{}, plugins.NewContractViolationError(
				"ik_solver", "solution %d has %d values for %d joints", i, len(solution), len(e.jointNames))
		}
		for _, v := range solution {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return reachdb.Record{}, plugins.NewContractViolationError("ik_solver", "solution %d is not finite", i)
			}
		}
		score, err := e.score(ctx, solution)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return reachdb.Record{}, ctxErr
			}
			e.logger.CDebugw(ctx, "skipping candidate solution", "candidate", i, "error", err)
			scoreErr = err
			continue
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return reachdb.Record{}, plugins.NewContractViolationError("evaluator", "score %v is not finite", score)
		}
		if best == nil || score > bestScore {
			best, bestScore = solution, score
		}
	}
	if best == nil {
		if scoreErr != nil {
			return e.failed(ctx, pose, seedValues, scoreErr)
		}
		return unreachable(pose, seedValues), nil
	}
	return reachdb.Record{
		Pose:      pose,
		Solution:  append([]float64{}, best...),
		Seed:      seedValues,
		Score:     bestScore,
		Reachable: true,
	}, nil
}

func (e *Evaluator) failed(
	ctx context.Context,
	pose spatialmath.Pose,
	seed []float64,
	err error,
) (reachdb.Record, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return reachdb.Record{}, ctxErr
	}
	e.logger.CDebugw(ctx, "pose recorded as unreachable", "error", err)
	return unreachable(pose, seed), nil
}

func unreachable(pose spatialmath.Pose, seed []float64) reachdb.Record {
	return reachdb.Record{Pose: pose, Seed: seed}
}

func (e *Evaluator) solve(
	ctx context.Context,
	target spatialmath.Pose,
	seed map[string]float64,
) (solutions [][]float64, err error) {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			err = &SampleError{Stage: "ik solver", Pose: target, Err: fmt.Errorf("panic: %v", thePanic)}
		}
	}()
	solutions, err = e.solver.Solve(ctx, target, seed)
	if err != nil {
		return nil, &SampleError{Stage: "ik solver", Pose: target, Err: err}
	}
	return solutions, nil
}

func (e *Evaluator) score(ctx context.Context, solution []float64) (score float64, err error) {
	defer func() {
		if thePanic := recover(); thePanic != nil {
			err = &SampleError{Stage: "evaluator", Err: fmt.Errorf("panic: %v", thePanic)}
		}
	}()
	score, err = e.evaluator.CalculateScore(ctx, e.JointPositions(solution))
	if err != nil {
		return 0, &SampleError{Stage: "evaluator", Err: err}
	}
	return score, nil
}
