package study

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/reach/config"
	"go.viam.com/reach/logging"
	"go.viam.com/reach/optimizer"
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/plugins/builtin"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/registry"
	"go.viam.com/reach/spatialmath"
	"go.viam.com/reach/testutils/inject"
)

// fakeStudy wires injected plugins that count how they are used.
type fakeStudy struct {
	poses     []spatialmath.Pose
	solutions func(target spatialmath.Pose) [][]float64
	score     float64

	generateCalls atomic.Int64
	solveCalls    atomic.Int64

	mu             sync.Mutex
	maxProgress    int
	progress       []int
	printedResults []reachdb.StudyResults
	messages       []string
	environments   int
	robotPoses     []map[string]float64
	neighborhoods  [][]reachdb.Record
	shownDatabases []*reachdb.Database
}

func newFakeStudy(poses ...spatialmath.Pose) *fakeStudy {
	return &fakeStudy{
		poses:     poses,
		solutions: func(spatialmath.Pose) [][]float64 { return [][]float64{{0}} },
		score:     4,
	}
}

func (f *fakeStudy) plugins() Plugins {
	return Plugins{
		IKSolver: &inject.IKSolver{
			JointNamesFunc: func() []string { return []string{"joint"} },
			SolveFunc: func(ctx context.Context, target spatialmath.Pose, seed map[string]float64) ([][]float64, error) {
				f.solveCalls.Add(1)
				return f.solutions(target), nil
			},
		},
		Evaluator: &inject.Evaluator{
			CalculateScoreFunc: func(ctx context.Context, jointPositions map[string]float64) (float64, error) {
				return f.score, nil
			},
		},
		TargetPoseGenerator: &inject.TargetPoseGenerator{
			GenerateFunc: func(ctx context.Context) ([]spatialmath.Pose, error) {
				f.generateCalls.Add(1)
				return f.poses, nil
			},
		},
		Display: &inject.Display{
			ShowEnvironmentFunc: func() {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.environments++
			},
			UpdateRobotPoseFunc: func(jointPositions map[string]float64) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.robotPoses = append(f.robotPoses, jointPositions)
			},
			ShowReachNeighborhoodFunc: func(neighborhood []reachdb.Record) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.neighborhoods = append(f.neighborhoods, neighborhood)
			},
			ShowResultsFunc: func(db *reachdb.Database) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.shownDatabases = append(f.shownDatabases, db)
			},
		},
		Logger: &inject.Logger{
			SetMaxProgressFunc: func(total int) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.maxProgress = total
			},
			PrintProgressFunc: func(current int) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.progress = append(f.progress, current)
			},
			PrintResultsFunc: func(results reachdb.StudyResults) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.printedResults = append(f.printedResults, results)
			},
			PrintFunc: func(msg string) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.messages = append(f.messages, msg)
			},
		},
	}
}

func testOptions() Options {
	return Options{
		Name:         "test",
		Optimization: optimizer.Parameters{Radius: 0.4, MaxSteps: 10, StepImprovementThreshold: 0.01},
		Workers:      4,
	}
}

func newTestStudy(t *testing.T, f *fakeStudy, opts Options) *Study {
	t.Helper()
	s, err := New(opts, f.plugins(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return s
}

func filledPose(v float64) spatialmath.Pose {
	var elements [16]float64
	for i := range elements {
		elements[i] = v
	}
	return spatialmath.NewPose(elements)
}

func linePoses(xs ...float64) []spatialmath.Pose {
	poses := make([]spatialmath.Pose, 0, len(xs))
	for _, x := range xs {
		poses = append(poses, spatialmath.NewPoseFromPoint(r3.Vector{X: x}))
	}
	return poses
}

func TestRunConstantScore(t *testing.T) {
	f := newFakeStudy(filledPose(0), filledPose(1), filledPose(2), filledPose(3))
	s := newTestStudy(t, f, testOptions())
	test.That(t, s.Database(), test.ShouldBeNil)

	test.That(t, s.Run(context.Background()), test.ShouldBeNil)
	db := s.Database()
	test.That(t, db, test.ShouldNotBeNil)
	test.That(t, db.Len(), test.ShouldEqual, 4)
	for v := 0.0; v < 4; v++ {
		rec, ok := db.Get(filledPose(v))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, rec.Reachable, test.ShouldBeTrue)
		test.That(t, rec.Score, test.ShouldEqual, 4.)
		test.That(t, rec.Solution, test.ShouldResemble, []float64{0})
	}
	res := s.Results()
	test.That(t, res.MeanScore, test.ShouldEqual, 4.)
	test.That(t, res.Coverage, test.ShouldEqual, 1.)
	test.That(t, f.generateCalls.Load(), test.ShouldEqual, 1)
	test.That(t, f.maxProgress, test.ShouldEqual, 4)
	test.That(t, f.progress[len(f.progress)-1], test.ShouldEqual, 4)
}

func TestRunUnreachablePose(t *testing.T) {
	f := newFakeStudy(linePoses(0, 1, 2)...)
	f.solutions = func(target spatialmath.Pose) [][]float64 {
		if target.Point().X == 1 {
			return nil
		}
		return [][]float64{{0}}
	}
	s := newTestStudy(t, f, testOptions())
	test.That(t, s.Run(context.Background()), test.ShouldBeNil)

	rec, ok := s.Database().Get(spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rec.Reachable, test.ShouldBeFalse)
	test.That(t, rec.Score, test.ShouldEqual, 0.)
	test.That(t, s.Results().Reachable, test.ShouldEqual, 2)
	test.That(t, s.Results().Coverage, test.ShouldAlmostEqual, 2./3)
}

func TestRunContractViolations(t *testing.T) {
	ctx := context.Background()

	s := newTestStudy(t, newFakeStudy(), testOptions())
	err := s.Run(ctx)
	test.That(t, plugins.IsContractViolation(err), test.ShouldBeTrue)
	test.That(t, s.Database(), test.ShouldBeNil)

	nan := spatialmath.NewPoseFromPoint(r3.Vector{X: math.NaN()})
	s = newTestStudy(t, newFakeStudy(spatialmath.Identity(), nan), testOptions())
	err = s.Run(ctx)
	test.That(t, plugins.IsContractViolation(err), test.ShouldBeTrue)

	f := newFakeStudy(linePoses(0, 1)...)
	f.solutions = func(spatialmath.Pose) [][]float64 { return [][]float64{{0, 1}} }
	s = newTestStudy(t, f, testOptions())
	err = s.Run(ctx)
	test.That(t, plugins.IsContractViolation(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sampling failed")
	test.That(t, s.Database(), test.ShouldBeNil)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := newFakeStudy(linePoses(0, 1, 2)...)
	s := newTestStudy(t, f, testOptions())
	err := s.Run(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, s.Database(), test.ShouldBeNil)
	test.That(t, f.solveCalls.Load(), test.ShouldEqual, 0)
}

func TestOptimizeBeforeRun(t *testing.T) {
	dir := t.TempDir()
	s := newTestStudy(t, newFakeStudy(linePoses(0)...), testOptions())

	_, err := s.Optimize(context.Background())
	test.That(t, optimizer.IsPreconditionError(err), test.ShouldBeTrue)
	test.That(t, s.Save(filepath.Join(dir, StudyFileName)), test.ShouldNotBeNil)

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, entries, test.ShouldBeEmpty)
}

func TestOptimizeNoImprovement(t *testing.T) {
	f := newFakeStudy(linePoses(0, 1, 2, 3)...)
	s := newTestStudy(t, f, testOptions())
	test.That(t, s.Run(context.Background()), test.ShouldBeNil)
	before := s.Database().Records()

	res, err := s.Optimize(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.State, test.ShouldEqual, optimizer.Converged)
	test.That(t, res.Steps, test.ShouldEqual, 0)
	test.That(t, s.Database().Records(), test.ShouldResemble, before)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, StudyFileName)
	f := newFakeStudy(linePoses(0, 1, 2)...)
	s := newTestStudy(t, f, testOptions())
	test.That(t, s.Run(context.Background()), test.ShouldBeNil)
	test.That(t, s.Save(path), test.ShouldBeNil)

	other := newTestStudy(t, newFakeStudy(), testOptions())
	test.That(t, other.Load(path), test.ShouldBeNil)
	test.That(t, other.Results(), test.ShouldResemble, s.Results())

	mismatch := newFakeStudy()
	p := mismatch.plugins()
	p.IKSolver = &inject.IKSolver{JointNamesFunc: func() []string { return []string{"a", "b"} }}
	wrongJoints, err := New(testOptions(), p, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	err = wrongJoints.Load(path)
	test.That(t, reachdb.IsPersistenceError(err), test.ShouldBeTrue)
	test.That(t, wrongJoints.Database(), test.ShouldBeNil)

	err = other.Load(filepath.Join(dir, "missing.db"))
	test.That(t, reachdb.IsPersistenceError(err), test.ShouldBeTrue)
	test.That(t, other.Database(), test.ShouldNotBeNil)
}

func TestAverageNeighborsCount(t *testing.T) {
	opts := testOptions()
	opts.Optimization.Radius = 0.15
	s := newTestStudy(t, newFakeStudy(linePoses(0, 0.1, 0.2, 1)...), opts)

	_, _, err := s.AverageNeighborsCount()
	test.That(t, optimizer.IsPreconditionError(err), test.ShouldBeTrue)

	test.That(t, s.Run(context.Background()), test.ShouldBeNil)
	mean, variance, err := s.AverageNeighborsCount()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mean, test.ShouldAlmostEqual, 1)
	test.That(t, variance, test.ShouldAlmostEqual, 2./3)
}

func TestBestRecord(t *testing.T) {
	f := newFakeStudy(linePoses(0, 1, 2)...)
	f.solutions = func(target spatialmath.Pose) [][]float64 {
		return [][]float64{{target.Point().X}}
	}
	p := f.plugins()
	p.Evaluator = &inject.Evaluator{
		CalculateScoreFunc: func(ctx context.Context, jointPositions map[string]float64) (float64, error) {
			return 10 - math.Abs(jointPositions["joint"]-1), nil
		},
	}
	s, err := New(testOptions(), p, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	_, ok := s.BestRecord()
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, s.Run(context.Background()), test.ShouldBeNil)
	best, ok := s.BestRecord()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, best.Pose, test.ShouldResemble, spatialmath.NewPoseFromPoint(r3.Vector{X: 1}))
}

func TestRunStudyFromScratch(t *testing.T) {
	results := t.TempDir()
	f := newFakeStudy(linePoses(0, 0.1, 0.2, 0.3)...)
	s := newTestStudy(t, f, testOptions())

	err := RunStudy(context.Background(), s, RunOptions{ResultsDir: results, ConfigName: "cell"})
	test.That(t, err, test.ShouldBeNil)

	for _, name := range []string{StudyFileName, OptimizedStudyFileName} {
		_, err := os.Stat(filepath.Join(results, "cell", name))
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, f.generateCalls.Load(), test.ShouldEqual, 1)
	test.That(t, f.printedResults, test.ShouldHaveLength, 1)
	test.That(t, f.printedResults[0].Total, test.ShouldEqual, 4)
	test.That(t, f.environments, test.ShouldEqual, 1)
	test.That(t, f.robotPoses, test.ShouldResemble, []map[string]float64{{"joint": 0}})
	test.That(t, f.neighborhoods, test.ShouldHaveLength, 1)
	test.That(t, f.neighborhoods[0], test.ShouldHaveLength, 3)
	test.That(t, f.shownDatabases, test.ShouldHaveLength, 1)
	test.That(t, f.shownDatabases[0], test.ShouldEqual, s.Database())
}

func TestRunStudyResumesUnoptimized(t *testing.T) {
	results := t.TempDir()
	opts := RunOptions{ResultsDir: results, ConfigName: "cell"}
	test.That(t, os.MkdirAll(opts.Dir(), 0o750), test.ShouldBeNil)

	first := newTestStudy(t, newFakeStudy(linePoses(0, 1, 2)...), testOptions())
	test.That(t, first.Run(context.Background()), test.ShouldBeNil)
	test.That(t, first.Save(filepath.Join(opts.Dir(), StudyFileName)), test.ShouldBeNil)

	studyOpts := testOptions()
	studyOpts.Optimization.MaxSteps = 0
	f := newFakeStudy(linePoses(5, 6)...)
	s := newTestStudy(t, f, studyOpts)
	test.That(t, RunStudy(context.Background(), s, opts), test.ShouldBeNil)

	test.That(t, f.generateCalls.Load(), test.ShouldEqual, 0)
	test.That(t, f.solveCalls.Load(), test.ShouldEqual, 0)
	optimized, err := reachdb.Load(filepath.Join(opts.Dir(), OptimizedStudyFileName))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, optimized.Len(), test.ShouldEqual, 3)
	test.That(t, optimized.Aggregate(), test.ShouldResemble, first.Results())
}

func TestRunStudyLoadsOptimized(t *testing.T) {
	results := t.TempDir()
	opts := RunOptions{ResultsDir: results, ConfigName: "cell"}

	first := newTestStudy(t, newFakeStudy(linePoses(0, 1)...), testOptions())
	test.That(t, RunStudy(context.Background(), first, opts), test.ShouldBeNil)

	f := newFakeStudy(linePoses(7)...)
	s := newTestStudy(t, f, testOptions())
	test.That(t, RunStudy(context.Background(), s, opts), test.ShouldBeNil)
	test.That(t, f.generateCalls.Load(), test.ShouldEqual, 0)
	test.That(t, f.solveCalls.Load(), test.ShouldEqual, 0)
	test.That(t, s.Database().Len(), test.ShouldEqual, 2)
	test.That(t, f.printedResults, test.ShouldHaveLength, 1)

	t.Run("overwrite samples again", func(t *testing.T) {
		f := newFakeStudy(linePoses(7)...)
		s := newTestStudy(t, f, testOptions())
		overwrite := opts
		overwrite.Overwrite = true
		test.That(t, RunStudy(context.Background(), s, overwrite), test.ShouldBeNil)
		test.That(t, f.generateCalls.Load(), test.ShouldEqual, 1)
		test.That(t, s.Database().Len(), test.ShouldEqual, 1)
	})
}

func TestRunStudyRejectsEscapingConfigNames(t *testing.T) {
	parent := t.TempDir()
	results := filepath.Join(parent, "results")
	test.That(t, os.MkdirAll(results, 0o750), test.ShouldBeNil)
	keep := filepath.Join(parent, "keep.txt")
	test.That(t, os.WriteFile(keep, []byte("x"), 0o600), test.ShouldBeNil)

	for _, name := range []string{"", ".", "..", "../results", "cell/sub", parent} {
		f := newFakeStudy(linePoses(0)...)
		s := newTestStudy(t, f, testOptions())
		err := RunStudy(context.Background(), s, RunOptions{ResultsDir: results, ConfigName: name, Overwrite: true})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, f.generateCalls.Load(), test.ShouldEqual, 0)
	}
	_, err := os.Stat(keep)
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(results)
	test.That(t, err, test.ShouldBeNil)
}

func TestRunStudyFromConfig(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(dir, "targets.json"),
		[]byte(`[{"x": 0.5}, {"x": 0.6}, {"x": 1.3}]`), 0o600), test.ShouldBeNil)

	cfg, err := config.FromReader(context.Background(), filepath.Join(dir, "cell.json"), strings.NewReader(`{
		"optimization": {"radius": 0.4, "max_steps": 5, "step_improvement_threshold": 0.001, "random_candidates": 2},
		"ik_solver": {"name": "spherical", "attributes": {"max_radius": 1}},
		"evaluator": {"name": "constant", "attributes": {"score": 1}},
		"target_pose_generator": {"name": "points_file", "attributes": {"file": "targets.json"}},
		"display": {"name": "log"},
		"logger": {"name": "log"},
		"workers": 2
	}`), logger)
	test.That(t, err, test.ShouldBeNil)

	r := builtin.NewRegistry(registry.Env{SearchPath: cfg.SearchPath(), Logger: logger})
	p, err := PluginsFromConfig(cfg, r)
	test.That(t, err, test.ShouldBeNil)
	s, err := New(OptionsFromConfig("cell", cfg), p, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, RunStudy(context.Background(), s, RunOptions{ResultsDir: dir, ConfigName: "cell"}), test.ShouldBeNil)
	res := s.Results()
	test.That(t, res.Total, test.ShouldEqual, 3)
	// Moving the base 0.4 towards the far target brings it within reach.
	test.That(t, res.Reachable, test.ShouldEqual, 3)
	test.That(t, res.MeanScore, test.ShouldEqual, 1.)

	cfg.IKSolver.Name = "analytic"
	_, err = PluginsFromConfig(cfg, r)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "known: [fixed, spherical]")
}
