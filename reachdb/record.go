package reachdb

import (
	"math"

	"go.viam.com/reach/spatialmath"
)

// Record is the reachability result for one sampled pose.
type Record struct {
	// Pose is the target pose in the study frame.
	Pose spatialmath.Pose
	// Solution holds the best joint values ordered like the database's joint names, or nil when
	// the pose was not reached.
	Solution []float64
	// Seed holds the joint values the solver started from, ordered like Solution. It is nil when
	// the seed is unknown.
	Seed []float64
	// Score is the evaluator's score for Solution. Unreachable poses score 0.
	Score     float64
	Reachable bool
}

// JointPositions pairs the record's solution with the given joint names. It returns nil when the
// record has no solution.
func (r Record) JointPositions(jointNames []string) map[string]float64 {
	return named(r.Solution, jointNames)
}

// SeedPositions pairs the record's seed with the given joint names. It returns nil when the seed
// is unknown.
func (r Record) SeedPositions(jointNames []string) map[string]float64 {
	return named(r.Seed, jointNames)
}

func named(values []float64, jointNames []string) map[string]float64 {
	if values == nil {
		return nil
	}
	positions := make(map[string]float64, len(jointNames))
	for i, name := range jointNames {
		if i < len(values) {
			positions[name] = values[i]
		}
	}
	return positions
}

func (r Record) clone() Record {
	if r.Solution != nil {
		r.Solution = append([]float64{}, r.Solution...)
	}
	if r.Seed != nil {
		r.Seed = append([]float64{}, r.Seed...)
	}
	return r
}

// Key identifies a pose in the database. Two poses share a key when all 16 elements are
// bitwise equal, treating -0 and +0 as the same value.
type Key [16]uint64

// KeyOf returns the key of a pose.
func KeyOf(p spatialmath.Pose) Key {
	var k Key
	for i, v := range p.Elements() {
		if v == 0 {
			v = 0 // -0
		}
		k[i] = math.Float64bits(v)
	}
	return k
}
