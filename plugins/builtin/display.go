package builtin

import (
	"go.viam.com/reach/logging"
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
	"go.viam.com/reach/registry"
)

// NoopDisplay ignores every call.
type NoopDisplay struct{}

func newNoopDisplay(env registry.Env, attrs registry.Attributes) (plugins.Display, error) {
	if err := registry.DecodeAttributes(attrs, &struct{}{}); err != nil {
		return nil, err
	}
	return NoopDisplay{}, nil
}

// ShowEnvironment does nothing.
func (NoopDisplay) ShowEnvironment() {}

// UpdateRobotPose does nothing.
func (NoopDisplay) UpdateRobotPose(map[string]float64) {}

// ShowReachNeighborhood does nothing.
func (NoopDisplay) ShowReachNeighborhood([]reachdb.Record) {}

// ShowResults does nothing.
func (NoopDisplay) ShowResults(*reachdb.Database) {}

// LogDisplay describes what a graphical display would show through a logger.
type LogDisplay struct {
	logger logging.Logger
}

// NewLogDisplay returns a display writing to logger.
func NewLogDisplay(logger logging.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

func newLogDisplay(env registry.Env, attrs registry.Attributes) (plugins.Display, error) {
	if err := registry.DecodeAttributes(attrs, &struct{}{}); err != nil {
		return nil, err
	}
	return NewLogDisplay(env.Logger), nil
}

// ShowEnvironment logs that the environment would be shown.
func (d *LogDisplay) ShowEnvironment() {
	d.logger.Info("showing environment")
}

// UpdateRobotPose logs the joint positions.
func (d *LogDisplay) UpdateRobotPose(jointPositions map[string]float64) {
	d.logger.Infow("robot pose", "joints", jointPositions)
}

// ShowReachNeighborhood logs the size and reachability of a neighborhood.
func (d *LogDisplay) ShowReachNeighborhood(neighborhood []reachdb.Record) {
	reachable := 0
	for _, rec := range neighborhood {
		if rec.Reachable {
			reachable++
		}
	}
	d.logger.Infow("reach neighborhood", "poses", len(neighborhood), "reachable", reachable)
}

// ShowResults logs the database's aggregate results.
func (d *LogDisplay) ShowResults(db *reachdb.Database) {
	res := db.Aggregate()
	d.logger.Infow("study results",
		"study", db.Name(),
		"poses", res.Total,
		"reachable", res.Reachable,
		"coverage", res.Coverage,
		"mean_score", res.MeanScore,
		"offset", db.Offset().Point(),
	)
}
