package neighbors

import "github.com/golang/geo/r3"

// LinearSearch is the reference implementation: every query scans all points, O(n).
type LinearSearch struct {
	points []Point
}

// NewLinearSearch copies the points into a new LinearSearch.
func NewLinearSearch(points []Point) *LinearSearch {
	return &LinearSearch{points: append([]Point(nil), points...)}
}

// Within returns every point no farther than radius from center.
func (ls *LinearSearch) Within(center r3.Vector, radius float64) []Neighbor {
	if radius < 0 {
		return nil
	}
	var found []Neighbor
	for _, p := range ls.points {
		if d := p.Position.Distance(center); d <= radius {
			found = append(found, Neighbor{ID: p.ID, Distance: d})
		}
	}
	sortNeighbors(found)
	return found
}

// Len returns the number of indexed points.
func (ls *LinearSearch) Len() int {
	return len(ls.points)
}
