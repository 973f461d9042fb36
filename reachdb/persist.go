package reachdb

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/reach/spatialmath"
)

const (
	fileFormat  = "reach-database"
	fileVersion = "1.2.0"
)

// Files written by any 1.x release can be read.
var readableVersions = mustConstraint("^1.0.0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// diskDatabase is the on-disk layout. Floats are encoded in their shortest round-trip form, so a
// load of a saved database reproduces every numeric field bit for bit.
type diskDatabase struct {
	Format     string       `json:"format"`
	Version    string       `json:"version"`
	SnapshotID string       `json:"snapshot_id"`
	SavedAt    time.Time    `json:"saved_at"`
	Name       string       `json:"name"`
	JointNames []string     `json:"joint_names"`
	Offset     [16]float64  `json:"offset"`
	Records    []diskRecord `json:"records"`
}

type diskRecord struct {
	Pose      [16]float64 `json:"pose"`
	Solution  []float64   `json:"solution"`
	Seed      []float64   `json:"seed,omitempty"`
	Score     float64     `json:"score"`
	Reachable bool        `json:"reachable"`
}

// Save writes the database to path. The file is written next to its destination and renamed
// into place, so a failed save never leaves a partial database behind. The parent directory must
// exist.
func (db *Database) Save(path string) (err error) {
	snapshotID := uuid.NewString()
	db.mu.RLock()
	doc := diskDatabase{
		Format:     fileFormat,
		Version:    fileVersion,
		SnapshotID: snapshotID,
		SavedAt:    time.Now().UTC(),
		Name:       db.name,
		JointNames: db.jointNames,
		Offset:     db.offset.Elements(),
		Records:    make([]diskRecord, len(db.records)),
	}
	for i, rec := range db.records {
		doc.Records[i] = diskRecord{
			Pose:      rec.Pose.Elements(),
			Solution:  rec.Solution,
			Seed:      rec.Seed,
			Score:     rec.Score,
			Reachable: rec.Reachable,
		}
	}
	// Records are replaced, never mutated in place, so encoding after unlocking is safe.
	db.mu.RUnlock()

	if err := writeAtomic(path, doc); err != nil {
		return newPersistenceError("save", path, err)
	}
	db.mu.Lock()
	db.snapshotID = snapshotID
	db.mu.Unlock()
	return nil
}

func writeAtomic(path string, doc diskDatabase) (err error) {
	dir := filepath.Dir(path)
	if info, statErr := os.Stat(dir); statErr != nil {
		return errors.Wrap(statErr, "results directory unavailable")
	} else if !info.IsDir() {
		return errors.Errorf("%q is not a directory", dir)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpPath := tmpFile.Name()
	closed, success := false, false
	defer func() {
		if success {
			return
		}
		if !closed {
			err = multierr.Combine(err, tmpFile.Close())
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			err = multierr.Combine(err, rmErr)
		}
	}()

	w := bufio.NewWriter(tmpFile)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return errors.Wrap(err, "encode")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "write")
	}
	if err := tmpFile.Sync(); err != nil {
		return errors.Wrap(err, "sync")
	}
	closed = true
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "rename")
	}
	success = true
	return nil
}

// Load reads a database written by Save.
func Load(path string) (*Database, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, newPersistenceError("load", path, err)
	}
	defer func() {
		// Read-only file; a close error cannot affect the decoded result.
		_ = f.Close()
	}()

	var doc diskDatabase
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&doc); err != nil {
		return nil, newPersistenceError("load", path, errors.Wrap(err, "corrupt database file"))
	}
	db, err := fromDisk(&doc)
	if err != nil {
		return nil, newPersistenceError("load", path, err)
	}
	return db, nil
}

func fromDisk(doc *diskDatabase) (*Database, error) {
	if doc.Format != fileFormat {
		return nil, errors.Errorf("unknown format %q", doc.Format)
	}
	version, err := semver.NewVersion(doc.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid version %q", doc.Version)
	}
	if !readableVersions.Check(version) {
		return nil, errors.Errorf("unsupported version %s, expected %s", version, readableVersions)
	}
	if len(doc.JointNames) == 0 {
		return nil, errors.New("missing joint names")
	}
	offset := spatialmath.NewPose(doc.Offset)
	if !offset.IsFinite() {
		return nil, errors.New("offset is not finite")
	}

	db := NewDatabase(doc.Name, doc.JointNames)
	db.offset = offset
	db.snapshotID = doc.SnapshotID
	for i, dr := range doc.Records {
		rec := Record{
			Pose:      spatialmath.NewPose(dr.Pose),
			Solution:  dr.Solution,
			Seed:      dr.Seed,
			Score:     dr.Score,
			Reachable: dr.Reachable,
		}
		if err := db.validate(rec); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		for _, v := range append(append([]float64{}, rec.Solution...), rec.Seed...) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Errorf("record %d has a non-finite joint value", i)
			}
		}
		if _, dup := db.index[KeyOf(rec.Pose)]; dup {
			return nil, errors.Errorf("record %d duplicates an earlier pose", i)
		}
		db.insert(rec)
	}
	return db, nil
}
