package reachdb

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/reach/spatialmath"
)

func reached(p spatialmath.Pose, score float64) Record {
	return Record{Pose: p, Solution: []float64{0.0}, Score: score, Reachable: true}
}

func at(x, y, z float64) spatialmath.Pose {
	return spatialmath.NewPoseFromPoint(r3.Vector{X: x, Y: y, Z: z})
}

func TestInsertGet(t *testing.T) {
	db := NewDatabase("study", []string{"joint"})
	p := at(1, 2, 3)

	_, ok := db.Get(p)
	test.That(t, ok, test.ShouldBeFalse)

	rec := reached(p, 4)
	test.That(t, db.Insert(rec), test.ShouldBeNil)
	got, ok := db.Get(p)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got, test.ShouldResemble, rec)

	// Returned records are copies.
	got.Solution[0] = 42
	again, _ := db.Get(p)
	test.That(t, again.Solution[0], test.ShouldEqual, 0.)

	// Same key overwrites.
	test.That(t, db.Insert(reached(p, 5)), test.ShouldBeNil)
	test.That(t, db.Insert(reached(p, 5)), test.ShouldBeNil)
	test.That(t, db.Len(), test.ShouldEqual, 1)
	got, _ = db.Get(p)
	test.That(t, got.Score, test.ShouldEqual, 5.)

	// Negative zero is the same key as zero.
	negZero := spatialmath.NewPose([16]float64{15: math.Copysign(0, -1)})
	test.That(t, KeyOf(negZero), test.ShouldResemble, KeyOf(spatialmath.NewPose([16]float64{})))
}

func TestInsertValidation(t *testing.T) {
	db := NewDatabase("study", []string{"a", "b"})
	p := at(0, 0, 0)

	err := db.Insert(Record{Pose: p, Solution: []float64{1}, Score: 1, Reachable: true})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "solution length")

	err = db.Insert(Record{Pose: p, Score: 1, Reachable: true})
	test.That(t, err, test.ShouldNotBeNil)

	err = db.Insert(Record{Pose: spatialmath.NewPose([16]float64{0: math.Inf(1)})})
	test.That(t, err, test.ShouldNotBeNil)
	err = db.Insert(Record{Pose: p, Seed: []float64{0}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "seed length")
	test.That(t, db.Len(), test.ShouldEqual, 0)

	test.That(t, db.Insert(Record{Pose: p, Seed: []float64{0, 1}}), test.ShouldBeNil)
	got, _ := db.Get(p)
	test.That(t, got.Seed, test.ShouldResemble, []float64{0, 1})
}

func TestConcurrentInsert(t *testing.T) {
	db := NewDatabase("study", []string{"joint"})
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			test.That(t, db.Insert(reached(at(float64(i), 0, 0), float64(i))), test.ShouldBeNil)
		}(i)
	}
	wg.Wait()
	test.That(t, db.Len(), test.ShouldEqual, 200)
	for i := 0; i < 200; i++ {
		rec, ok := db.Get(at(float64(i), 0, 0))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, rec.Score, test.ShouldEqual, float64(i))
	}
}

func TestNearestNeighbors(t *testing.T) {
	for _, n := range []int{10, 200} {
		t.Run(fmt.Sprintf("%d poses", n), func(t *testing.T) {
			db := NewDatabase("study", []string{"joint"})
			for i := 0; i < n; i++ {
				test.That(t, db.Insert(reached(at(float64(i)*0.1, 0, 0), 1)), test.ShouldBeNil)
			}
			center := at(0.5, 0, 0)
			found := db.NearestNeighbors(center, 0.25)
			test.That(t, found, test.ShouldHaveLength, 4)
			last := 0.
			for _, rec := range found {
				d := spatialmath.Distance(rec.Pose, center)
				test.That(t, d, test.ShouldBeLessThanOrEqualTo, 0.25)
				test.That(t, d, test.ShouldBeGreaterThanOrEqualTo, last)
				test.That(t, KeyOf(rec.Pose), test.ShouldNotResemble, KeyOf(center))
				last = d
			}

			// A new key invalidates the index.
			test.That(t, db.Insert(reached(at(0.5, 0.01, 0), 1)), test.ShouldBeNil)
			test.That(t, db.NearestNeighbors(center, 0.25), test.ShouldHaveLength, 5)

			// Queries for poses not in the database return everything in range.
			test.That(t, db.NearestNeighbors(at(0.55, 0, 0), 0.06), test.ShouldHaveLength, 3)
		})
	}
}

func TestNeighborsWithSameTranslation(t *testing.T) {
	db := NewDatabase("study", []string{"joint"})
	a := spatialmath.NewPoseFromPointYaw(r3.Vector{X: 1}, 0.5)
	b := spatialmath.NewPoseFromPointYaw(r3.Vector{X: 1}, -0.5)
	test.That(t, db.Insert(reached(a, 1)), test.ShouldBeNil)
	test.That(t, db.Insert(reached(b, 1)), test.ShouldBeNil)

	found := db.NearestNeighbors(a, 0.1)
	test.That(t, found, test.ShouldHaveLength, 1)
	test.That(t, found[0].Pose, test.ShouldResemble, b)
}

func TestAggregate(t *testing.T) {
	db := NewDatabase("study", []string{"joint"})
	test.That(t, db.Aggregate(), test.ShouldResemble, StudyResults{})

	for i := 0; i < 4; i++ {
		test.That(t, db.Insert(reached(at(float64(i), 0, 0), 4)), test.ShouldBeNil)
	}
	res := db.Aggregate()
	test.That(t, res.Total, test.ShouldEqual, 4)
	test.That(t, res.Reachable, test.ShouldEqual, 4)
	test.That(t, res.MeanScore, test.ShouldEqual, 4.)
	test.That(t, res.MedianScore, test.ShouldEqual, 4.)
	test.That(t, res.Coverage, test.ShouldEqual, 1.)

	test.That(t, db.Insert(Record{Pose: at(9, 0, 0)}), test.ShouldBeNil)
	res = db.Aggregate()
	test.That(t, res.Total, test.ShouldEqual, 5)
	test.That(t, res.Reachable, test.ShouldEqual, 4)
	test.That(t, res.Coverage, test.ShouldEqual, 0.8)
	test.That(t, res.TotalScore, test.ShouldEqual, 16.)
	test.That(t, res.MeanScore, test.ShouldAlmostEqual, 3.2)
	test.That(t, res.MeanReachableScore, test.ShouldEqual, 4.)
	test.That(t, res.String(), test.ShouldContainSubstring, "80.00%")
}

func TestApply(t *testing.T) {
	db := NewDatabase("study", []string{"joint"})
	test.That(t, db.Insert(Record{Pose: at(1, 0, 0)}), test.ShouldBeNil)

	offset := at(0, 0, 1)
	bad := []Record{reached(at(1, 0, 0), 2), {Pose: at(2, 0, 0), Reachable: true}}
	test.That(t, db.Apply(offset, bad), test.ShouldNotBeNil)
	test.That(t, db.Offset().IsIdentity(), test.ShouldBeTrue)
	rec, _ := db.Get(at(1, 0, 0))
	test.That(t, rec.Reachable, test.ShouldBeFalse)

	test.That(t, db.Apply(offset, bad[:1]), test.ShouldBeNil)
	test.That(t, db.Offset(), test.ShouldResemble, offset)
	rec, _ = db.Get(at(1, 0, 0))
	test.That(t, rec.Score, test.ShouldEqual, 2.)
	test.That(t, rec.JointPositions(db.JointNames()), test.ShouldResemble, map[string]float64{"joint": 0})
}
