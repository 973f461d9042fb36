package builtin

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/reach/plugins"
	"go.viam.com/reach/registry"
	"go.viam.com/reach/spatialmath"
)

// FixedIKConfig configures the fixed IK solver.
type FixedIKConfig struct {
	JointNames []string `json:"joint_names"`
	// Solutions are returned for every target. When empty, a single all-zero solution is used.
	Solutions [][]float64 `json:"solutions"`
	// Unreachable makes every target unreachable.
	Unreachable bool `json:"unreachable"`
}

// FixedIKSolver returns the same solutions for every target. It is useful to exercise a study
// without a kinematic model.
type FixedIKSolver struct {
	jointNames []string
	solutions  [][]float64
}

// NewFixedIKSolver returns a fixed solver for cfg.
func NewFixedIKSolver(cfg FixedIKConfig) (*FixedIKSolver, error) {
	names := cfg.JointNames
	if len(names) == 0 {
		names = []string{"joint_1"}
	}
	solutions := cfg.Solutions
	if len(solutions) == 0 {
		solutions = [][]float64{make([]float64, len(names))}
	}
	if cfg.Unreachable {
		solutions = nil
	}
	for i, solution := range solutions {
		if len(solution) != len(names) {
			return nil, errors.Errorf("solution %d has %d values for %d joints", i, len(solution), len(names))
		}
	}
	return &FixedIKSolver{jointNames: append([]string{}, names...), solutions: solutions}, nil
}

func newFixedIKSolver(env registry.Env, attrs registry.Attributes) (plugins.IKSolver, error) {
	var cfg FixedIKConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewFixedIKSolver(cfg)
}

// JointNames returns the configured joint names.
func (s *FixedIKSolver) JointNames() []string {
	return append([]string{}, s.jointNames...)
}

// Solve returns copies of the configured solutions.
func (s *FixedIKSolver) Solve(ctx context.Context, target spatialmath.Pose, seed map[string]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(s.solutions))
	for _, solution := range s.solutions {
		out = append(out, append([]float64{}, solution...))
	}
	return out, nil
}

// Joint names of the spherical solver.
const (
	YawJoint       = "yaw"
	PitchJoint     = "pitch"
	ExtensionJoint = "extension"
)

// SphericalIKConfig configures the spherical IK solver.
type SphericalIKConfig struct {
	MinRadius float64 `json:"min_radius"`
	MaxRadius float64 `json:"max_radius"`
}

// SphericalIKSolver models a yaw/pitch turret carrying a prismatic extension, with the base at
// the origin. A target is reachable when its distance from the base lies within the extension
// range; orientation is ignored. Points off the yaw axis have two solutions, one reaching over the
// top. Solutions are ordered by their distance to the seed.
type SphericalIKSolver struct {
	minRadius float64
	maxRadius float64
}

// NewSphericalIKSolver returns a spherical solver for cfg.
func NewSphericalIKSolver(cfg SphericalIKConfig) (*SphericalIKSolver, error) {
	if cfg.MinRadius < 0 || cfg.MaxRadius <= cfg.MinRadius ||
		math.IsInf(cfg.MaxRadius, 0) || math.IsNaN(cfg.MinRadius) || math.IsNaN(cfg.MaxRadius) {
		return nil, errors.Errorf("need 0 <= min_radius < max_radius, got [%v, %v]", cfg.MinRadius, cfg.MaxRadius)
	}
	return &SphericalIKSolver{minRadius: cfg.MinRadius, maxRadius: cfg.MaxRadius}, nil
}

func newSphericalIKSolver(env registry.Env, attrs registry.Attributes) (plugins.IKSolver, error) {
	cfg := SphericalIKConfig{MaxRadius: 1}
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewSphericalIKSolver(cfg)
}

// JointNames returns yaw, pitch and extension.
func (s *SphericalIKSolver) JointNames() []string {
	return []string{YawJoint, PitchJoint, ExtensionJoint}
}

// Solve returns the solutions placing the tip at the target's position.
func (s *SphericalIKSolver) Solve(ctx context.Context, target spatialmath.Pose, seed map[string]float64) ([][]float64, error) {
	if !target.IsFinite() {
		return nil, errors.New("target is not finite")
	}
	pt := target.Point()
	r := pt.Norm()
	if r < s.minRadius || r > s.maxRadius {
		return nil, nil
	}
	if r == 0 {
		return [][]float64{{0, 0, 0}}, nil
	}
	yaw := math.Atan2(pt.Y, pt.X)
	pitch := math.Atan2(pt.Z, math.Hypot(pt.X, pt.Y))
	solutions := [][]float64{{yaw, pitch, r}}
	if pt.X != 0 || pt.Y != 0 {
		solutions = append(solutions, []float64{wrapAngle(yaw + math.Pi), wrapAngle(math.Pi - pitch), r})
	}
	if seed != nil {
		from := []float64{seed[YawJoint], seed[PitchJoint], seed[ExtensionJoint]}
		sort.SliceStable(solutions, func(i, j int) bool {
			return jointDistance(solutions[i], from) < jointDistance(solutions[j], from)
		})
	}
	return solutions, nil
}

// wrapAngle maps an angle into [-π, π].
func wrapAngle(theta float64) float64 {
	return math.Remainder(theta, 2*math.Pi)
}

func jointDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
