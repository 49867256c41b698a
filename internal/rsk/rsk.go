// Package rsk reads RSK instrument recordings: SQLite containers holding
// raw oceanographic sensor samples plus the metadata catalogs (instrument,
// deployment, channels, calibrations, regions) needed to turn them into
// calibrated, profile-indexed time series.
package rsk

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotOpen is returned when an operation requires an open recording.
	ErrNotOpen = errors.New("recording is not open")
	// ErrInvalidWindow is returned when a read window has t1 > t2.
	ErrInvalidWindow = errors.New("invalid read window")
	// ErrNoData is returned when an operation requires a prior bulk read.
	ErrNoData = errors.New("no data has been read")
	// ErrNoConductivity is returned by ComputeProfiles when the channel
	// catalog has no conductivity channel to discriminate in-air samples.
	ErrNoConductivity = errors.New("recording has no conductivity channel")
)

// Well-known channel long names used by profile detection.
const (
	ChannelConductivity = "conductivity"
	ChannelPressure     = "pressure"
)

// RSK is an open instrument recording. Metadata catalogs are loaded once at
// Open and are read-only afterwards; the engine only ever appends to Regions.
// Access is single-threaded: an RSK must not be shared across goroutines.
type RSK struct {
	Filename string

	DbInfo       *DbInfo
	Instrument   *Instrument
	Deployment   *Deployment
	Epoch        *Epoch
	Schedule     *Schedule
	Channels     []Channel
	Calibrations []Calibration
	Regions      []Region

	// Data holds the most recent full-resolution read and ProcessedData the
	// most recent windowed/burst read. Both are nil until the matching read
	// happens and are discarded on Close.
	Data          *Table
	ProcessedData *Table

	db      *sql.DB
	current *Table // most recently read table; profile index queries resolve against it
}

// Open opens the recording at path and loads its metadata catalogs.
func Open(path string) (*RSK, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording %s: %w", path, err)
	}

	r := &RSK{Filename: path, db: db}
	if err := r.loadMetadata(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the underlying database and discards all loaded tables.
func (r *RSK) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.Data = nil
	r.ProcessedData = nil
	r.current = nil
	return err
}

// DB exposes the underlying database handle for read-only debug surfaces
// such as the tailsql viewer. Callers must not write through it.
func (r *RSK) DB() *sql.DB {
	return r.db
}

// ChannelExists reports whether a channel with the given long name is in
// the catalog.
func (r *RSK) ChannelExists(longName string) bool {
	for _, ch := range r.Channels {
		if ch.LongName == longName {
			return true
		}
	}
	return false
}

// channelOrder returns the 1-based storage order of the named channel,
// or 0 when absent.
func (r *RSK) channelOrder(longName string) int {
	for i, ch := range r.Channels {
		if ch.LongName == longName {
			return i + 1
		}
	}
	return 0
}

// calibrationFor returns the active calibration for a 1-based storage
// order, or nil when the channel is uncalibrated.
func (r *RSK) calibrationFor(order int) *Calibration {
	for i := range r.Calibrations {
		if r.Calibrations[i].ChannelOrder == order {
			return &r.Calibrations[i]
		}
	}
	return nil
}

func (r *RSK) loadMetadata() error {
	ok, err := r.tableExists("channels")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not an RSK recording (no channels table)", r.Filename)
	}

	if err := r.loadDbInfo(); err != nil {
		return err
	}
	if err := r.loadInstrument(); err != nil {
		return err
	}
	if err := r.loadDeployment(); err != nil {
		return err
	}
	if err := r.loadEpoch(); err != nil {
		return err
	}
	if err := r.loadSchedule(); err != nil {
		return err
	}
	if err := r.loadChannels(); err != nil {
		return err
	}
	if err := r.loadCalibrations(); err != nil {
		return err
	}
	return r.loadRegions()
}

func (r *RSK) tableExists(name string) (bool, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect schema for table %s: %w", name, err)
	}
	return n > 0, nil
}

func (r *RSK) columnExists(table, column string) (bool, error) {
	rows, err := r.db.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
