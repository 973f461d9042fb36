package builtin

import (
	"context"
	"math"
	"os"

	"github.com/goccy/go-json"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/reach/plugins"
	"go.viam.com/reach/registry"
	"go.viam.com/reach/spatialmath"
)

// MatricesGeneratorConfig lists poses as row-major 4x4 matrices.
type MatricesGeneratorConfig struct {
	Poses [][]float64 `json:"poses"`
}

// MatricesGenerator returns a fixed list of poses.
type MatricesGenerator struct {
	poses []spatialmath.Pose
}

// NewMatricesGenerator returns a generator for cfg. Every row must hold 16 finite values.
func NewMatricesGenerator(cfg MatricesGeneratorConfig) (*MatricesGenerator, error) {
	if len(cfg.Poses) == 0 {
		return nil, errors.New("no poses")
	}
	poses := make([]spatialmath.Pose, 0, len(cfg.Poses))
	for i, values := range cfg.Poses {
		pose, err := spatialmath.NewPoseFromSlice(values)
		if err != nil {
			return nil, errors.Wrapf(err, "pose %d", i)
		}
		if !pose.IsFinite() {
			return nil, errors.Errorf("pose %d is not finite", i)
		}
		poses = append(poses, pose)
	}
	return &MatricesGenerator{poses: poses}, nil
}

func newMatricesGenerator(env registry.Env, attrs registry.Attributes) (plugins.TargetPoseGenerator, error) {
	var cfg MatricesGeneratorConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewMatricesGenerator(cfg)
}

// Generate returns the configured poses.
func (g *MatricesGenerator) Generate(ctx context.Context) ([]spatialmath.Pose, error) {
	return append([]spatialmath.Pose{}, g.poses...), nil
}

// Point is a position with an optional rotation about Z, as found in config and point files.
type Point struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	YawDegs float64 `json:"yaw_degs"`
}

// Pose returns the point as a pose.
func (p Point) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromPointYaw(r3.Vector{X: p.X, Y: p.Y, Z: p.Z}, p.YawDegs*math.Pi/180)
}

func (p Point) vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// GridGeneratorConfig describes a regular lattice of positions.
type GridGeneratorConfig struct {
	Min  Point   `json:"min"`
	Max  Point   `json:"max"`
	Step float64 `json:"step"`
}

const maxGridPoses = 10_000_000

// GridGenerator samples a box on a regular lattice. Every pose shares the orientation given by
// Min.YawDegs.
type GridGenerator struct {
	cfg    GridGeneratorConfig
	counts [3]int
}

// NewGridGenerator returns a grid generator for cfg. Both corners are included when the box
// size is a multiple of the step.
func NewGridGenerator(cfg GridGeneratorConfig) (*GridGenerator, error) {
	if !(cfg.Step > 0) || math.IsInf(cfg.Step, 0) {
		return nil, errors.Errorf("step must be positive and finite, got %v", cfg.Step)
	}
	lo, hi := cfg.Min.vector(), cfg.Max.vector()
	g := &GridGenerator{cfg: cfg}
	total := 1
	for axis, span := range []float64{hi.X - lo.X, hi.Y - lo.Y, hi.Z - lo.Z} {
		if span < 0 || math.IsNaN(span) || math.IsInf(span, 0) {
			return nil, errors.New("grid max must not be below min")
		}
		// tolerate rounding in span/step so that the max corner is kept
		g.counts[axis] = int(math.Floor(span/cfg.Step+1e-9)) + 1
		total *= g.counts[axis]
		if total > maxGridPoses {
			return nil, errors.Errorf("grid has more than %d poses", maxGridPoses)
		}
	}
	return g, nil
}

func newGridGenerator(env registry.Env, attrs registry.Attributes) (plugins.TargetPoseGenerator, error) {
	var cfg GridGeneratorConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewGridGenerator(cfg)
}

// Generate returns the lattice, x varying fastest.
func (g *GridGenerator) Generate(ctx context.Context) ([]spatialmath.Pose, error) {
	lo := g.cfg.Min.vector()
	yaw := g.cfg.Min.YawDegs * math.Pi / 180
	poses := make([]spatialmath.Pose, 0, g.counts[0]*g.counts[1]*g.counts[2])
	for k := 0; k < g.counts[2]; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < g.counts[1]; j++ {
			for i := 0; i < g.counts[0]; i++ {
				pt := r3.Vector{
					X: lo.X + float64(i)*g.cfg.Step,
					Y: lo.Y + float64(j)*g.cfg.Step,
					Z: lo.Z + float64(k)*g.cfg.Step,
				}
				poses = append(poses, spatialmath.NewPoseFromPointYaw(pt, yaw))
			}
		}
	}
	return poses, nil
}

// PointsFileGeneratorConfig names a JSON file holding an array of points.
type PointsFileGeneratorConfig struct {
	File string `json:"file"`
}

// PointsFileGenerator reads its poses from a JSON file each time it generates.
type PointsFileGenerator struct {
	path string
}

// NewPointsFileGenerator returns a generator reading path.
func NewPointsFileGenerator(path string) *PointsFileGenerator {
	return &PointsFileGenerator{path: path}
}

func newPointsFileGenerator(env registry.Env, attrs registry.Attributes) (plugins.TargetPoseGenerator, error) {
	var cfg PointsFileGeneratorConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	path, err := env.ResolveFile(cfg.File)
	if err != nil {
		return nil, err
	}
	return NewPointsFileGenerator(path), nil
}

// Generate reads and converts the points.
func (g *PointsFileGenerator) Generate(ctx context.Context) ([]spatialmath.Pose, error) {
	//nolint:gosec
	data, err := os.ReadFile(g.path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read points file")
	}
	var points []Point
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, errors.Wrapf(err, "failed to parse points file %q", g.path)
	}
	poses := make([]spatialmath.Pose, 0, len(points))
	for _, pt := range points {
		poses = append(poses, pt.Pose())
	}
	return poses, nil
}
