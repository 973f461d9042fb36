// Package neighbors implements range queries over the positions of sampled poses.
package neighbors

import (
	"sort"

	"github.com/golang/geo/r3"
)

// kdTreeThreshold is the point count above which New builds a k-d tree instead of scanning.
const kdTreeThreshold = 64

// Point is an indexed position. ID is opaque to the search and returned with each match.
type Point struct {
	ID       int
	Position r3.Vector
}

// Neighbor is a match returned by a range query.
type Neighbor struct {
	ID       int
	Distance float64
}

// Search answers "which points lie within radius of center" queries. Implementations return
// matches ordered by increasing distance, ties broken by ID, and include points at exactly
// radius.
type Search interface {
	Within(center r3.Vector, radius float64) []Neighbor
	Len() int
}

// New returns a linear scan for small point sets and a k-d tree otherwise.
func New(points []Point) Search {
	if len(points) > kdTreeThreshold {
		return NewKDTreeSearch(points)
	}
	return NewLinearSearch(points)
}

func sortNeighbors(found []Neighbor) {
	sort.Slice(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		return found[i].ID < found[j].ID
	})
}
