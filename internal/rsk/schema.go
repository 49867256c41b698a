package rsk

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
)

// DbInfo identifies the container schema version and flavour.
type DbInfo struct {
	Version string
	Type    string
}

// Instrument describes the logger that produced the recording.
// PartNumber is nil for schema versions that predate the column.
type Instrument struct {
	InstrumentID    int64
	SerialID        int64
	Model           string
	FirmwareVersion string
	FirmwareType    int64
	PartNumber      *string
}

// Deployment describes a single deployment of the instrument.
type Deployment struct {
	DeploymentID   int64
	InstrumentID   int64
	TimeOfDownload int64 // ms epoch
	Name           string
}

// Epoch bounds the recording's time axis in millisecond epoch time.
type Epoch struct {
	DeploymentID int64
	StartTime    int64
	EndTime      int64
}

// Schedule describes the sampling schedule (e.g. mode "wave", gate
// "twist activation").
type Schedule struct {
	ScheduleID   int64
	InstrumentID int64
	Mode         string
	Gate         string
}

// Channel is one sensor channel. Storage order is its 1-based position in
// the catalog; data table columns are named channel01..channelNN in that
// order.
type Channel struct {
	ChannelID int64
	ShortName string
	LongName  string
	Units     string
}

// Calibration converts raw counts on one channel into engineering units.
// The coefficient slices c, x and n vary in length by equation kind and
// are read-only after load; absent coefficient slots hold NaN.
type Calibration struct {
	CalibrationID int64
	ChannelOrder  int
	InstrumentID  int64
	Type          string
	Equation      string
	C, X, N       []float64
}

func (r *RSK) loadDbInfo() error {
	ok, err := r.tableExists("dbInfo")
	if err != nil || !ok {
		return err
	}
	var info DbInfo
	err = r.db.QueryRow(`SELECT version, type FROM dbInfo`).Scan(&info.Version, &info.Type)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load dbInfo: %w", err)
	}
	r.DbInfo = &info
	return nil
}

func (r *RSK) loadInstrument() error {
	ok, err := r.tableExists("instruments")
	if err != nil || !ok {
		return err
	}

	hasPart, err := r.columnExists("instruments", "partNumber")
	if err != nil {
		return err
	}

	var inst Instrument
	if hasPart {
		var part sql.NullString
		err = r.db.QueryRow(
			`SELECT instrumentID, serialID, model, firmwareVersion, firmwareType, partNumber
			 FROM instruments`,
		).Scan(&inst.InstrumentID, &inst.SerialID, &inst.Model, &inst.FirmwareVersion, &inst.FirmwareType, &part)
		if part.Valid {
			inst.PartNumber = &part.String
		}
	} else {
		err = r.db.QueryRow(
			`SELECT instrumentID, serialID, model, firmwareVersion, firmwareType
			 FROM instruments`,
		).Scan(&inst.InstrumentID, &inst.SerialID, &inst.Model, &inst.FirmwareVersion, &inst.FirmwareType)
	}
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load instrument: %w", err)
	}
	r.Instrument = &inst
	return nil
}

func (r *RSK) loadDeployment() error {
	ok, err := r.tableExists("deployments")
	if err != nil || !ok {
		return err
	}
	var dep Deployment
	var name sql.NullString
	err = r.db.QueryRow(
		`SELECT deploymentID, instrumentID, timeOfDownload, name FROM deployments`,
	).Scan(&dep.DeploymentID, &dep.InstrumentID, &dep.TimeOfDownload, &name)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load deployment: %w", err)
	}
	dep.Name = name.String
	r.Deployment = &dep
	return nil
}

func (r *RSK) loadEpoch() error {
	ok, err := r.tableExists("epochs")
	if err != nil || !ok {
		return err
	}
	var ep Epoch
	err = r.db.QueryRow(
		`SELECT deploymentID, startTime, endTime FROM epochs`,
	).Scan(&ep.DeploymentID, &ep.StartTime, &ep.EndTime)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load epoch: %w", err)
	}
	r.Epoch = &ep
	return nil
}

func (r *RSK) loadSchedule() error {
	ok, err := r.tableExists("schedules")
	if err != nil || !ok {
		return err
	}
	var sch Schedule
	err = r.db.QueryRow(
		`SELECT scheduleID, instrumentID, mode, gate FROM schedules`,
	).Scan(&sch.ScheduleID, &sch.InstrumentID, &sch.Mode, &sch.Gate)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load schedule: %w", err)
	}
	r.Schedule = &sch
	return nil
}

func (r *RSK) loadChannels() error {
	rows, err := r.db.Query(
		`SELECT channelID, shortName, longName, units FROM channels ORDER BY channelID`,
	)
	if err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.ChannelID, &ch.ShortName, &ch.LongName, &ch.Units); err != nil {
			return fmt.Errorf("failed to scan channel: %w", err)
		}
		r.Channels = append(r.Channels, ch)
	}
	return rows.Err()
}

func (r *RSK) loadCalibrations() error {
	ok, err := r.tableExists("calibrations")
	if err != nil || !ok {
		return err
	}

	rows, err := r.db.Query(
		`SELECT calibrationID, channelOrder, instrumentID, type, equation
		 FROM calibrations ORDER BY calibrationID`,
	)
	if err != nil {
		return fmt.Errorf("failed to load calibrations: %w", err)
	}
	defer rows.Close()

	index := make(map[int64]int)
	for rows.Next() {
		var cal Calibration
		if err := rows.Scan(&cal.CalibrationID, &cal.ChannelOrder, &cal.InstrumentID, &cal.Type, &cal.Equation); err != nil {
			return fmt.Errorf("failed to scan calibration: %w", err)
		}
		index[cal.CalibrationID] = len(r.Calibrations)
		r.Calibrations = append(r.Calibrations, cal)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ok, err = r.tableExists("coefficients")
	if err != nil || !ok {
		return err
	}
	return r.loadCoefficients(index)
}

// loadCoefficients fills the c/x/n slices from the key/value coefficient
// table. Keys look like "c0", "x10", "n3"; values are stored as text.
func (r *RSK) loadCoefficients(index map[int64]int) error {
	rows, err := r.db.Query(
		`SELECT calibrationID, key, value FROM coefficients ORDER BY calibrationID, key`,
	)
	if err != nil {
		return fmt.Errorf("failed to load coefficients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			calID int64
			key   string
			value sql.NullString
		)
		if err := rows.Scan(&calID, &key, &value); err != nil {
			return fmt.Errorf("failed to scan coefficient: %w", err)
		}
		i, ok := index[calID]
		if !ok {
			return fmt.Errorf("coefficient %q references unknown calibration %d", key, calID)
		}
		if err := r.Calibrations[i].setCoefficient(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c *Calibration) setCoefficient(key string, value sql.NullString) error {
	if len(key) < 2 {
		return fmt.Errorf("calibration %d has malformed coefficient key %q", c.CalibrationID, key)
	}
	idx, err := strconv.Atoi(key[1:])
	if err != nil || idx < 0 {
		return fmt.Errorf("calibration %d has malformed coefficient key %q", c.CalibrationID, key)
	}

	v := math.NaN()
	if value.Valid {
		if parsed, err := strconv.ParseFloat(value.String, 64); err == nil {
			v = parsed
		}
	}

	var slot *[]float64
	switch key[0] {
	case 'c':
		slot = &c.C
	case 'x':
		slot = &c.X
	case 'n':
		slot = &c.N
	default:
		return fmt.Errorf("calibration %d has unknown coefficient group %q", c.CalibrationID, key)
	}

	for len(*slot) <= idx {
		*slot = append(*slot, math.NaN())
	}
	(*slot)[idx] = v
	return nil
}
