// Package study sequences a reach study: it generates target poses, samples their reachability
// into a database, optimizes the study frame, and persists and reports the result.
package study

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/reach/config"
	"go.viam.com/reach/logging"
	"go.viam.com/reach/optimizer"
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/registry"
	"go.viam.com/reach/sampler"
	"go.viam.com/reach/spatialmath"
)

// Plugins are the strategies a study is assembled from.
type Plugins struct {
	IKSolver            plugins.IKSolver
	Evaluator           plugins.Evaluator
	TargetPoseGenerator plugins.TargetPoseGenerator
	Display             plugins.Display
	Logger              plugins.Logger
}

// PluginsFromConfig builds the configured plugins from r.
func PluginsFromConfig(cfg *config.Config, r *registry.Registry) (Plugins, error) {
	var (
		p   Plugins
		err error
	)
	if p.IKSolver, err = r.IKSolver(cfg.IKSolver.Name, cfg.IKSolver.Attributes); err != nil {
		return Plugins{}, err
	}
	if p.Evaluator, err = r.Evaluator(cfg.Evaluator.Name, cfg.Evaluator.Attributes); err != nil {
		return Plugins{}, err
	}
	if p.TargetPoseGenerator, err = r.TargetPoseGenerator(
		cfg.TargetPoseGenerator.Name, cfg.TargetPoseGenerator.Attributes,
	); err != nil {
		return Plugins{}, err
	}
	if p.Display, err = r.Display(cfg.Display.Name, cfg.Display.Attributes); err != nil {
		return Plugins{}, err
	}
	if p.Logger, err = r.Logger(cfg.Logger.Name, cfg.Logger.Attributes); err != nil {
		return Plugins{}, err
	}
	return p, nil
}

// Options are the study settings that are not plugins.
type Options struct {
	Name             string
	Optimization     optimizer.Parameters
	Workers          int
	ProgressInterval time.Duration
	// BaseOffset is the study frame offset used when sampling from scratch.
	BaseOffset spatialmath.Pose
}

// OptionsFromConfig extracts the study options from an ensured config.
func OptionsFromConfig(name string, cfg *config.Config) Options {
	return Options{
		Name:             name,
		Optimization:     cfg.Optimization,
		Workers:          cfg.WorkerCount(),
		ProgressInterval: cfg.ProgressEvery(),
		BaseOffset:       cfg.BaseOffset(),
	}
}

// Study owns a reach database and the plugins used to fill and optimize it.
type Study struct {
	opts      Options
	plugins   Plugins
	evaluator *sampler.Evaluator
	logger    logging.Logger

	mu sync.Mutex
	db *reachdb.Database
}

// New returns a study without a database. Run or Load must be called before Optimize.
func New(opts Options, p Plugins, logger logging.Logger) (*Study, error) {
	if p.TargetPoseGenerator == nil || p.Display == nil || p.Logger == nil {
		return nil, errors.New("a study needs a target pose generator, a display and a logger")
	}
	if err := opts.Optimization.Validate(); err != nil {
		return nil, err
	}
	evaluator, err := sampler.NewEvaluator(p.IKSolver, p.Evaluator, logger.Sublogger("sampler"))
	if err != nil {
		return nil, err
	}
	if opts.BaseOffset == (spatialmath.Pose{}) {
		opts.BaseOffset = spatialmath.Identity()
	}
	return &Study{opts: opts, plugins: p, evaluator: evaluator, logger: logger}, nil
}

// Database returns the current database, nil before Run or Load.
func (s *Study) Database() *reachdb.Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

func (s *Study) setDatabase(db *reachdb.Database) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// Run generates the target poses and samples all of them into a new database under the base
// offset. The previous database is only replaced on success.
func (s *Study) Run(ctx context.Context) error {
	poses, err := s.plugins.TargetPoseGenerator.Generate(ctx)
	if err != nil {
		return errors.Wrap(err, "target pose generator failed")
	}
	if len(poses) == 0 {
		return plugins.NewContractViolationError("target_pose_generator", "generated no poses")
	}
	jobs := make([]sampler.Job, len(poses))
	for i, pose := range poses {
		if !pose.IsFinite() {
			return plugins.NewContractViolationError("target_pose_generator", "pose %d is not finite", i)
		}
		jobs[i] = sampler.Job{Pose: pose}
	}

	db := reachdb.NewDatabase(s.opts.Name, s.evaluator.JointNames())
	db.SetOffset(s.opts.BaseOffset)

	s.logger.Infow("sampling", "poses", len(jobs), "workers", s.opts.Workers)
	start := time.Now()
	progress := sampler.NewProgress(s.plugins.Logger, len(jobs), s.opts.ProgressInterval)
	_, err = s.evaluator.EvaluateAll(ctx, jobs, s.opts.BaseOffset, sampler.PassOptions{
		Workers:  s.opts.Workers,
		Progress: progress,
		OnRecord: func(_ int, rec reachdb.Record) error {
			return db.Insert(rec)
		},
	})
	if err != nil {
		return errors.Wrap(err, "sampling failed")
	}
	progress.Finish()

	s.setDatabase(db)
	res := db.Aggregate()
	s.logger.Infow("sampling done", "poses", res.Total, "reachable", res.Reachable, "elapsed", time.Since(start))
	s.plugins.Logger.Print(fmt.Sprintf("Sampled %d poses, %d reachable", res.Total, res.Reachable))
	return nil
}

// Optimize moves the study frame until the optimizer terminates. Calling it before Run or Load
// is a PreconditionError.
func (s *Study) Optimize(ctx context.Context) (*optimizer.Result, error) {
	db := s.Database()
	if db == nil {
		return nil, optimizer.NewPreconditionError("no database; run or load a study first")
	}
	o, err := optimizer.New(db, s.evaluator, s.opts.Optimization,
		optimizer.Options{Workers: s.opts.Workers}, s.logger.Sublogger("optimizer"))
	if err != nil {
		return nil, err
	}
	res, err := o.Optimize(ctx)
	if err != nil {
		if optimizer.IsPreconditionError(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "optimization failed")
	}
	s.plugins.Logger.Print(fmt.Sprintf("Optimization %s after %d iterations (%d steps): score %.4f -> %.4f",
		res.State, res.Iterations, res.Steps, res.InitialScore, res.FinalScore))
	return res, nil
}

// Save writes the database to path.
func (s *Study) Save(path string) error {
	db := s.Database()
	if db == nil {
		return errors.New("no database to save")
	}
	return db.Save(path)
}

// Load replaces the database with the one stored at path. The stored joint names must match the
// IK solver's.
func (s *Study) Load(path string) error {
	db, err := reachdb.Load(path)
	if err != nil {
		return err
	}
	if want := s.evaluator.JointNames(); !slices.Equal(db.JointNames(), want) {
		return &reachdb.PersistenceError{
			Op:   "load",
			Path: path,
			Err:  errors.Errorf("database joints %v do not match the solver's %v", db.JointNames(), want),
		}
	}
	s.setDatabase(db)
	s.logger.Infow("loaded database", "path", path, "poses", db.Len(), "snapshot", db.SnapshotID())
	return nil
}

// Results returns the aggregate results of the current database.
func (s *Study) Results() reachdb.StudyResults {
	db := s.Database()
	if db == nil {
		return reachdb.StudyResults{}
	}
	return db.Aggregate()
}

// BestRecord returns the highest scoring reachable record, the first one on ties.
func (s *Study) BestRecord() (reachdb.Record, bool) {
	db := s.Database()
	if db == nil {
		return reachdb.Record{}, false
	}
	var (
		best  reachdb.Record
		found bool
	)
	for _, rec := range db.Records() {
		if rec.Reachable && (!found || rec.Score > best.Score) {
			best, found = rec, true
		}
	}
	return best, found
}

// AverageNeighborsCount returns the mean and variance of the number of records within the
// optimization radius of each record.
func (s *Study) AverageNeighborsCount() (mean, variance float64, err error) {
	db := s.Database()
	if db == nil || db.Len() == 0 {
		return 0, 0, optimizer.NewPreconditionError("no database; run or load a study first")
	}
	records := db.Records()
	counts := make([]float64, len(records))
	for i, rec := range records {
		counts[i] = float64(len(db.NearestNeighbors(rec.Pose, s.opts.Optimization.Radius)))
	}
	if len(counts) == 1 {
		return counts[0], 0, nil
	}
	mean, variance = stat.MeanVariance(counts, nil)
	return mean, variance, nil
}
