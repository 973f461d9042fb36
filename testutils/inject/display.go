package inject

import (
	"go.viam.com/reach/plugins"
	"go.viam.com/reach/reachdb"
)

// Display is an injected display.
type Display struct {
	plugins.Display
	ShowEnvironmentFunc       func()
	UpdateRobotPoseFunc       func(jointPositions map[string]float64)
	ShowReachNeighborhoodFunc func(neighborhood []reachdb.Record)
	ShowResultsFunc           func(db *reachdb.Database)
}

// ShowEnvironment calls the injected ShowEnvironment or the real version.
func (d *Display) ShowEnvironment() {
	if d.ShowEnvironmentFunc == nil {
		d.Display.ShowEnvironment()
		return
	}
	d.ShowEnvironmentFunc()
}

// UpdateRobotPose calls the injected UpdateRobotPose or the real version.
func (d *Display) UpdateRobotPose(jointPositions map[string]float64) {
	if d.UpdateRobotPoseFunc == nil {
		d.Display.UpdateRobotPose(jointPositions)
		return
	}
	d.UpdateRobotPoseFunc(jointPositions)
}

// ShowReachNeighborhood calls the injected ShowReachNeighborhood or the real version.
func (d *Display) ShowReachNeighborhood(neighborhood []reachdb.Record) {
	if d.ShowReachNeighborhoodFunc == nil {
		d.Display.ShowReachNeighborhood(neighborhood)
		return
	}
	d.ShowReachNeighborhoodFunc(neighborhood)
}

// ShowResults calls the injected ShowResults or the real version.
func (d *Display) ShowResults(db *reachdb.Database) {
	if d.ShowResultsFunc == nil {
		d.Display.ShowResults(db)
		return
	}
	d.ShowResultsFunc(db)
}
