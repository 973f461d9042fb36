// Package reachdb stores the reachability result of every sampled pose of a reach study.
package reachdb

import (
	"math"
	"sync"

	"go.viam.com/reach/neighbors"
	"go.viam.com/reach/spatialmath"
)

// Database maps sampled poses to their reach records. It is safe for concurrent use; concurrent
// inserts of distinct poses never lose records.
type Database struct {
	mu         sync.RWMutex
	name       string
	jointNames []string
	offset     spatialmath.Pose
	snapshotID string

	index   map[Key]int
	records []Record

	// search is rebuilt lazily after new keys are inserted.
	search neighbors.Search
}

// NewDatabase returns an empty database for a study whose solver exposes `jointNames`. The study
// frame offset starts at the identity.
func NewDatabase(name string, jointNames []string) *Database {
	return &Database{
		name:       name,
		jointNames: append([]string{}, jointNames...),
		offset:     spatialmath.Identity(),
		index:      map[Key]int{},
	}
}

// Name returns the study name.
func (db *Database) Name() string {
	return db.name
}

// JointNames returns the joint names records' solutions are ordered by.
func (db *Database) JointNames() []string {
	return append([]string{}, db.jointNames...)
}

// SnapshotID returns the id written by the last Save, or read by Load. Empty for a database that
// has never been persisted.
func (db *Database) SnapshotID() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.snapshotID
}

// Offset returns the study frame offset the records were computed under.
func (db *Database) Offset() spatialmath.Pose {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.offset
}

// SetOffset records the study frame offset.
func (db *Database) SetOffset(offset spatialmath.Pose) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.offset = offset
}

// Len returns the number of records.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.records)
}

// Insert adds the record, replacing any record with the same pose key.
func (db *Database) Insert(rec Record) error {
	if err := db.validate(rec); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.insert(rec)
	return nil
}

// Apply atomically replaces the offset and inserts every record. Nothing is written when any
// record is invalid.
func (db *Database) Apply(offset spatialmath.Pose, records []Record) error {
	for _, rec := range records {
		if err := db.validate(rec); err != nil {
			return err
		}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.offset = offset
	for _, rec := range records {
		db.insert(rec)
	}
	return nil
}

func (db *Database) insert(rec Record) {
	key := KeyOf(rec.Pose)
	if idx, ok := db.index[key]; ok {
		db.records[idx] = rec.clone()
		return
	}
	db.index[key] = len(db.records)
	db.records = append(db.records, rec.clone())
	db.search = nil
}

func (db *Database) validate(rec Record) error {
	if !rec.Pose.IsFinite() {
		return NewInvalidRecordError("pose has non-finite elements")
	}
	if math.IsNaN(rec.Score) || math.IsInf(rec.Score, 0) {
		return NewInvalidRecordError("score is not finite")
	}
	if rec.Solution != nil && len(rec.Solution) != len(db.jointNames) {
		return NewInvalidRecordError("solution length does not match joint names")
	}
	if rec.Seed != nil && len(rec.Seed) != len(db.jointNames) {
		return NewInvalidRecordError("seed length does not match joint names")
	}
	if rec.Reachable != (rec.Solution != nil) {
		return NewInvalidRecordError("reachable records need a solution and unreachable ones none")
	}
	return nil
}

// Get returns the record for the pose, if present.
func (db *Database) Get(pose spatialmath.Pose) (Record, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	idx, ok := db.index[KeyOf(pose)]
	if !ok {
		return Record{}, false
	}
	return db.records[idx].clone(), true
}

// Records returns a copy of every record in insertion order.
func (db *Database) Records() []Record {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]Record, len(db.records))
	for i, rec := range db.records {
		out[i] = rec.clone()
	}
	return out
}

// NearestNeighbors returns the records whose translation lies within radius of the pose's
// translation, closest first. The record stored under the pose itself is never returned.
func (db *Database) NearestNeighbors(pose spatialmath.Pose, radius float64) []Record {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.search == nil {
		points := make([]neighbors.Point, len(db.records))
		for i, rec := range db.records {
			points[i] = neighbors.Point{ID: i, Position: rec.Pose.Point()}
		}
		db.search = neighbors.New(points)
	}

	key := KeyOf(pose)
	found := db.search.Within(pose.Point(), radius)
	out := make([]Record, 0, len(found))
	for _, n := range found {
		rec := db.records[n.ID]
		if KeyOf(rec.Pose) == key {
			continue
		}
		out = append(out, rec.clone())
	}
	return out
}
