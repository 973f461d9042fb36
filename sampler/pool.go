package sampler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/spatialmath"
)

// Job is a single pose evaluation. A nil Seed means all joints start at zero.
type Job struct {
	Pose spatialmath.Pose
	Seed map[string]float64
}

// PassOptions controls a parallel evaluation pass.
type PassOptions struct {
	// Workers bounds the number of concurrent evaluations. Values below 1 mean 1.
	Workers int
	// Progress is incremented once per finished job, if set.
	Progress *Progress
	// OnRecord is called from the worker goroutine with the job index and its record as soon as the
	// record is available. A returned error aborts the pass.
	OnRecord func(index int, rec reachdb.Record) error
}

// EvaluateAll evaluates every job under the given offset on a bounded pool of workers. The
// returned records are ordered like jobs. The first contract violation, OnRecord failure or
// context cancellation stops the pass; jobs not yet started are skipped and the error is returned.
func (e *Evaluator) EvaluateAll(
	ctx context.Context,
	jobs []Job,
	offset spatialmath.Pose,
	opts PassOptions,
) ([]reachdb.Record, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	records := make([]reachdb.Record, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := e.Evaluate(gctx, jobs[i].Pose, offset, jobs[i].Seed)
			if err != nil {
				return err
			}
			records[i] = rec
			if opts.OnRecord != nil {
				if err := opts.OnRecord(i, rec); err != nil {
					return err
				}
			}
			if opts.Progress != nil {
				opts.Progress.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
