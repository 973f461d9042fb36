// Package optimizer moves a study frame around to improve the reachability of a sampled pose set.
//
// The search is a deterministic hill climb. Each iteration re-evaluates every sampled pose under
// a set of candidate offsets (six axis-aligned steps of length Radius plus a seeded number of
// random points inside the radius ball) and keeps the best one if it improves the mean score by at
// least the configured threshold.
package optimizer

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/reach/logging"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/sampler"
	"go.viam.com/reach/spatialmath"
)

var axisSteps = []r3.Vector{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Options are optional execution settings.
type Options struct {
	// Workers bounds concurrent pose evaluations within a candidate pass.
	Workers int
}

// Result summarizes a finished optimization.
type Result struct {
	State State
	// Steps counts accepted steps; Iterations counts all iterations.
	Steps      int
	Iterations int

	InitialScore float64
	FinalScore   float64
	Offset       spatialmath.Pose
	// History holds the mean score before any step followed by the score after each accepted
	// step. It never decreases.
	History []float64
}

// Optimizer drives a single optimization of a database. It is not reusable.
type Optimizer struct {
	db        *reachdb.Database
	evaluator *sampler.Evaluator
	params    Parameters
	opts      Options
	logger    logging.Logger

	mu    sync.Mutex
	state State
}

// New returns an optimizer over db. Invalid parameters are rejected with a PreconditionError.
func New(
	db *reachdb.Database,
	evaluator *sampler.Evaluator,
	params Parameters,
	opts Options,
	logger logging.Logger,
) (*Optimizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if evaluator == nil {
		return nil, errors.New("optimizer requires an evaluator")
	}
	return &Optimizer{
		db:        db,
		evaluator: evaluator,
		params:    params.withDefaults(),
		opts:      opts,
		logger:    logger,
		state:     Initialized,
	}, nil
}

// State returns the current state.
func (o *Optimizer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Optimizer) transition(next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if next <= o.state {
		o.logger.Warnw("ignoring backward optimizer transition", "from", o.state, "to", next)
		return
	}
	o.logger.Debugw("optimizer transition", "from", o.state, "to", next)
	o.state = next
}

// Optimize runs until convergence or the step limit. Accepted steps are written to the database
// as they happen. An empty database is a PreconditionError and nothing is evaluated.
func (o *Optimizer) Optimize(ctx context.Context) (*Result, error) {
	if o.State() != Initialized {
		return nil, NewPreconditionError("optimizer already ran")
	}
	if o.db == nil || o.db.Len() == 0 {
		return nil, NewPreconditionError("database is empty; run or load a study first")
	}

	o.transition(Sampling)
	current := o.db.Aggregate().MeanScore
	res := &Result{
		InitialScore: current,
		FinalScore:   current,
		Offset:       o.db.Offset(),
		History:      []float64{current},
	}
	o.logger.Infow("starting optimization", "score", current, "max_steps", o.params.MaxSteps)

	o.transition(Optimizing)
	//nolint:gosec
	rng := rand.New(rand.NewPCG(uint64(o.params.Seed), 0))
	belowThreshold := 0
	for res.Iterations < o.params.MaxSteps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Iterations++

		offset := o.db.Offset()
		jobs := o.jobs(o.db.Records())
		candidate, records, score, err := o.bestCandidate(ctx, jobs, o.propose(offset, rng))
		if err != nil {
			return nil, err
		}

		gain := score - current
		if gain <= 0 {
			o.logger.Infow("no candidate improves the score", "iteration", res.Iterations, "score", current)
			return o.finish(res, Converged), nil
		}
		if gain < o.params.StepImprovementThreshold {
			belowThreshold++
			o.logger.Debugw("rejected step below threshold",
				"iteration", res.Iterations, "gain", gain, "consecutive", belowThreshold)
			if belowThreshold >= o.params.Patience {
				return o.finish(res, Converged), nil
			}
			continue
		}
		belowThreshold = 0

		if err := o.db.Apply(candidate, records); err != nil {
			return nil, errors.Wrap(err, "failed to apply optimization step")
		}
		current = score
		res.Steps++
		res.FinalScore = score
		res.Offset = candidate
		res.History = append(res.History, score)
		o.logger.Infow("accepted step", "iteration", res.Iterations, "score", score, "gain", gain)
	}
	return o.finish(res, StepLimitReached), nil
}

func (o *Optimizer) finish(res *Result, state State) *Result {
	o.transition(state)
	res.State = state
	o.logger.Infow("optimization finished",
		"state", state, "steps", res.Steps, "iterations", res.Iterations, "score", res.FinalScore)
	return res
}

// jobs builds one evaluation job per record, seeding IK from the record's own solution, or else
// from the closest reachable neighbor within the radius.
func (o *Optimizer) jobs(records []reachdb.Record) []sampler.Job {
	jointNames := o.db.JointNames()
	jobs := make([]sampler.Job, len(records))
	for i, rec := range records {
		jobs[i].Pose = rec.Pose
		if rec.Reachable {
			jobs[i].Seed = rec.JointPositions(jointNames)
			continue
		}
		for _, neighbor := range o.db.NearestNeighbors(rec.Pose, o.params.Radius) {
			if neighbor.Reachable {
				jobs[i].Seed = neighbor.JointPositions(jointNames)
				break
			}
		}
	}
	return jobs
}

// propose returns the candidate offsets around offset.
func (o *Optimizer) propose(offset spatialmath.Pose, rng *rand.Rand) []spatialmath.Pose {
	candidates := make([]spatialmath.Pose, 0, len(axisSteps)+o.params.RandomCandidates)
	for _, dir := range axisSteps {
		candidates = append(candidates, spatialmath.Translate(offset, dir.Mul(o.params.Radius)))
	}
	for i := 0; i < o.params.RandomCandidates; i++ {
		candidates = append(candidates, spatialmath.Translate(offset, randomInBall(rng).Mul(o.params.Radius)))
	}
	return candidates
}

// randomInBall draws a non-zero point uniformly from the unit ball by rejection.
func randomInBall(rng *rand.Rand) r3.Vector {
	for {
		v := r3.Vector{X: 2*rng.Float64() - 1, Y: 2*rng.Float64() - 1, Z: 2*rng.Float64() - 1}
		if n := v.Norm2(); n > 0 && n <= 1 {
			return v
		}
	}
}

// bestCandidate evaluates every candidate and returns the highest scoring one, first on ties.
func (o *Optimizer) bestCandidate(
	ctx context.Context,
	jobs []sampler.Job,
	candidates []spatialmath.Pose,
) (spatialmath.Pose, []reachdb.Record, float64, error) {
	var (
		best        spatialmath.Pose
		bestRecords []reachdb.Record
		bestScore   float64
	)
	for i, candidate := range candidates {
		records, err := o.evaluator.EvaluateAll(ctx, jobs, candidate, sampler.PassOptions{Workers: o.opts.Workers})
		if err != nil {
			return spatialmath.Pose{}, nil, 0, err
		}
		score := meanScore(records)
		o.logger.Debugw("evaluated candidate", "candidate", i, "point", candidate.Point(), "score", score)
		if bestRecords == nil || score > bestScore {
			best, bestRecords, bestScore = candidate, records, score
		}
	}
	return best, bestRecords, bestScore, nil
}

// meanScore matches reachdb.StudyResults.MeanScore for records in database order.
func meanScore(records []reachdb.Record) float64 {
	var total float64
	for _, rec := range records {
		total += rec.Score
	}
	return total / float64(len(records))
}
