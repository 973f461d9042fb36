package study

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// File names of the two snapshots kept per study.
const (
	StudyFileName          = "study.db"
	OptimizedStudyFileName = "study_optimized.db"
)

// RunOptions locate a study's results on disk.
type RunOptions struct {
	ResultsDir string
	ConfigName string
	// Overwrite deletes any previous results of the study first.
	Overwrite bool
}

// Dir returns the directory holding the study's snapshots.
func (o RunOptions) Dir() string {
	return filepath.Join(o.ResultsDir, o.ConfigName)
}

// Validate ensures the config name names a single directory inside the results directory.
func (o RunOptions) Validate() error {
	switch name := o.ConfigName; {
	case name == "":
		return errors.New("a config name is required")
	case name == "." || name == ".." || filepath.Base(name) != name || filepath.IsAbs(name):
		return errors.Errorf("config name %q must be a plain directory name", name)
	}
	return nil
}

// RunStudy brings the study's results up to date and reports them. Work already on disk is
// reused: an optimized snapshot is only loaded, and an unoptimized one is optimized without
// sampling again.
func RunStudy(ctx context.Context, s *Study, opts RunOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	dir := opts.Dir()
	if opts.Overwrite {
		s.logger.Infow("removing previous results", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrap(err, "failed to remove previous results")
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "failed to create results directory")
	}

	studyPath := filepath.Join(dir, StudyFileName)
	optimizedPath := filepath.Join(dir, OptimizedStudyFileName)
	switch {
	case fileExists(optimizedPath):
		s.plugins.Logger.Print("Loading optimized study from " + optimizedPath)
		if err := s.Load(optimizedPath); err != nil {
			return err
		}
	case fileExists(studyPath):
		s.plugins.Logger.Print("Loading study from " + studyPath)
		if err := s.Load(studyPath); err != nil {
			return err
		}
		if err := optimizeAndSave(ctx, s, optimizedPath); err != nil {
			return err
		}
	default:
		s.plugins.Logger.Print("Running study " + opts.ConfigName)
		if err := s.Run(ctx); err != nil {
			return err
		}
		if err := s.Save(studyPath); err != nil {
			return err
		}
		if err := optimizeAndSave(ctx, s, optimizedPath); err != nil {
			return err
		}
	}

	report(s)
	return nil
}

func optimizeAndSave(ctx context.Context, s *Study, path string) error {
	if _, err := s.Optimize(ctx); err != nil {
		return err
	}
	return s.Save(path)
}

// report prints the results and shows the best pose and its neighborhood.
func report(s *Study) {
	db := s.Database()
	s.plugins.Logger.PrintResults(db.Aggregate())
	s.plugins.Display.ShowEnvironment()
	if best, ok := s.BestRecord(); ok {
		s.plugins.Display.UpdateRobotPose(best.JointPositions(db.JointNames()))
		s.plugins.Display.ShowReachNeighborhood(db.NearestNeighbors(best.Pose, s.opts.Optimization.Radius))
	}
	s.plugins.Display.ShowResults(db)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
