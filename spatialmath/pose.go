// Package spatialmath defines the homogeneous transforms used to describe sampled target poses
// and the study frame of a reach study.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const floatEpsilon = 1e-9

// Pose is a 4x4 homogeneous transform stored row-major. Poses are values and never mutated once
// constructed. Any 4x4 matrix is accepted; rigid-body operations such as InvertRigid only make
// sense for matrices whose upper-left 3x3 block is a rotation and whose last row is (0, 0, 0, 1).
type Pose struct {
	m [16]float64
}

// NewPose returns a pose from its 16 row-major elements.
func NewPose(elements [16]float64) Pose {
	return Pose{m: elements}
}

// NewPoseFromSlice returns a pose from a 16 element row-major slice.
func NewPoseFromSlice(elements []float64) (Pose, error) {
	if len(elements) != 16 {
		return Pose{}, errors.Errorf("a pose needs 16 elements, got %d", len(elements))
	}
	var p Pose
	copy(p.m[:], elements)
	return p, nil
}

// NewPoseFromMatrix returns a pose from a 4x4 matrix.
func NewPoseFromMatrix(m mat.Matrix) (Pose, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return Pose{}, errors.Errorf("a pose needs a 4x4 matrix, got %dx%d", r, c)
	}
	var p Pose
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			p.m[i*4+j] = m.At(i, j)
		}
	}
	return p, nil
}

// Identity returns the identity transform.
func Identity() Pose {
	return Pose{m: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// NewPoseFromPoint returns a pure translation.
func NewPoseFromPoint(pt r3.Vector) Pose {
	p := Identity()
	p.m[3], p.m[7], p.m[11] = pt.X, pt.Y, pt.Z
	return p
}

// NewPoseFromPointYaw returns a translation combined with a rotation of `yaw` radians about Z.
func NewPoseFromPointYaw(pt r3.Vector, yaw float64) Pose {
	s, c := math.Sincos(yaw)
	return Pose{m: [16]float64{
		c, -s, 0, pt.X,
		s, c, 0, pt.Y,
		0, 0, 1, pt.Z,
		0, 0, 0, 1,
	}}
}

// At returns the element at row i, column j.
func (p Pose) At(i, j int) float64 {
	return p.m[i*4+j]
}

// Elements returns a copy of the 16 row-major elements.
func (p Pose) Elements() [16]float64 {
	return p.m
}

// Point returns the translation component.
func (p Pose) Point() r3.Vector {
	return r3.Vector{X: p.m[3], Y: p.m[7], Z: p.m[11]}
}

// Matrix returns the pose as a new 4x4 dense matrix.
func (p Pose) Matrix() *mat.Dense {
	data := p.m
	return mat.NewDense(4, 4, data[:])
}

// IsFinite reports whether every element is a finite number.
func (p Pose) IsFinite() bool {
	for _, v := range p.m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsIdentity reports whether the pose is exactly the identity transform.
func (p Pose) IsIdentity() bool {
	return p.m == Identity().m
}

func (p Pose) String() string {
	pt := p.Point()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f}", pt.X, pt.Y, pt.Z)
}

// Compose returns a·b. Composing with the identity returns the other operand unchanged.
func Compose(a, b Pose) Pose {
	if a.IsIdentity() {
		return b
	}
	if b.IsIdentity() {
		return a
	}
	var out mat.Dense
	out.Mul(a.Matrix(), b.Matrix())
	// NewPoseFromMatrix only fails on dimension mismatches, which cannot happen here.
	composed, _ := NewPoseFromMatrix(&out)
	return composed
}

// InvertRigid inverts a rigid transform using the transpose of its rotation block.
func InvertRigid(p Pose) Pose {
	if p.IsIdentity() {
		return p
	}
	var inv Pose
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv.m[i*4+j] = p.m[j*4+i]
		}
	}
	t := p.Point()
	for i := 0; i < 3; i++ {
		inv.m[i*4+3] = -(inv.m[i*4]*t.X + inv.m[i*4+1]*t.Y + inv.m[i*4+2]*t.Z)
	}
	inv.m[15] = 1
	return inv
}

// Translate returns the pose moved by `delta` expressed in the parent frame.
func Translate(p Pose, delta r3.Vector) Pose {
	return Compose(NewPoseFromPoint(delta), p)
}

// Distance returns the euclidean distance between the translations of two poses.
func Distance(a, b Pose) float64 {
	return a.Point().Distance(b.Point())
}

// PoseAlmostEqual returns whether every element of two poses is within a small epsilon.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, floatEpsilon)
}

// PoseAlmostEqualEps returns whether every element of two poses is within `epsilon`.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	for i := range a.m {
		if math.Abs(a.m[i]-b.m[i]) > epsilon {
			return false
		}
	}
	return true
}
