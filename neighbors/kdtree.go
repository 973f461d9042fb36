package neighbors

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTreeSearch indexes points in a gonum k-d tree. Queries visit O(log n + k) nodes on
// well-distributed data.
type KDTreeSearch struct {
	tree *kdtree.Tree
	n    int
}

// NewKDTreeSearch builds a balanced tree over a copy of the points.
func NewKDTreeSearch(points []Point) *KDTreeSearch {
	if len(points) == 0 {
		return &KDTreeSearch{}
	}
	tp := make(treePoints, len(points))
	for i, p := range points {
		tp[i] = treePoint(p)
	}
	return &KDTreeSearch{tree: kdtree.New(tp, false), n: len(points)}
}

// Within returns every point no farther than radius from center.
func (ks *KDTreeSearch) Within(center r3.Vector, radius float64) []Neighbor {
	if ks.tree == nil || radius < 0 {
		return nil
	}
	// Tree distances are squared euclidean. Squaring rounds, so the bound is widened to keep points
	// lying exactly on the sphere; the exact distance filter below trims anything extra.
	bound := math.Nextafter(radius*radius, math.Inf(1)) * (1 + 1e-12)
	keeper := kdtree.NewDistKeeper(bound)
	ks.tree.NearestSet(keeper, treePoint{Position: center})

	var found []Neighbor
	for _, c := range keeper.Heap {
		// The keeper is primed with a sentinel that carries no point.
		p, ok := c.Comparable.(treePoint)
		if !ok {
			continue
		}
		if d := p.Position.Distance(center); d <= radius {
			found = append(found, Neighbor{ID: p.ID, Distance: d})
		}
	}
	sortNeighbors(found)
	return found
}

// Len returns the number of indexed points.
func (ks *KDTreeSearch) Len() int {
	return ks.n
}

type treePoint Point

func dim(v r3.Vector, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (p treePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(treePoint)
	return dim(p.Position, d) - dim(q.Position, d)
}

func (p treePoint) Dims() int { return 3 }

func (p treePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(treePoint)
	return p.Position.Sub(q.Position).Norm2()
}

type treePoints []treePoint

func (p treePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p treePoints) Len() int                              { return len(p) }
func (p treePoints) Pivot(d kdtree.Dim) int                { return treePlane{treePoints: p, Dim: d}.Pivot() }
func (p treePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// treePlane sorts points along a single dimension for median pivoting.
type treePlane struct {
	kdtree.Dim
	treePoints
}

func (p treePlane) Less(i, j int) bool {
	return dim(p.treePoints[i].Position, p.Dim) < dim(p.treePoints[j].Position, p.Dim)
}
func (p treePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p treePlane) Slice(start, end int) kdtree.SortSlicer {
	p.treePoints = p.treePoints[start:end]
	return p
}
func (p treePlane) Swap(i, j int) {
	p.treePoints[i], p.treePoints[j] = p.treePoints[j], p.treePoints[i]
}
