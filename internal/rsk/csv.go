package rsk

import (
	"database/sql"
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mooring-data/rsk.report/internal/monitoring"
	"github.com/mooring-data/rsk.report/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// createSchema applies the embedded container schema to a fresh database.
func createSchema(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded schema: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare schema driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "rsk", driver)
	if err != nil {
		return fmt.Errorf("failed to prepare schema migration: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to create container schema: %w", err)
	}
	return nil
}

// CSV2RSK builds a new recording container at rskPath from a CSV file
// whose header is "timestamp(ms),name(unit),...", loads the samples, and
// returns the opened recording. The destination must not already exist.
func CSV2RSK(csvPath, rskPath string) (*RSK, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", csvPath, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %s: %w", csvPath, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV %s has no sample rows", csvPath)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("CSV %s needs a timestamp column and at least one channel", csvPath)
	}
	tsName, _ := splitHeaderField(header[0])
	if tsName != "timestamp" {
		return nil, fmt.Errorf("CSV %s first column is %q, want timestamp", csvPath, header[0])
	}
	channels := make([]Channel, 0, len(header)-1)
	for i, field := range header[1:] {
		name, unit := splitHeaderField(field)
		if name == "" {
			return nil, fmt.Errorf("CSV %s has empty channel name in column %d", csvPath, i+2)
		}
		channels = append(channels, Channel{
			ChannelID: int64(i + 1),
			ShortName: name,
			LongName:  name,
			Units:     unit,
		})
	}

	if _, err := os.Stat(rskPath); err == nil {
		return nil, fmt.Errorf("refusing to overwrite existing recording %s", rskPath)
	}

	db, err := sql.Open("sqlite", rskPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %s: %w", rskPath, err)
	}
	if err := populateFromCSV(db, rskPath, channels, records[1:]); err != nil {
		db.Close()
		os.Remove(rskPath)
		return nil, err
	}
	if err := db.Close(); err != nil {
		return nil, err
	}
	monitoring.Logf("imported %d rows into %s", len(records)-1, rskPath)
	return Open(rskPath)
}

func populateFromCSV(db *sql.DB, rskPath string, channels []Channel, rows [][]string) error {
	if err := createSchema(db); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO dbInfo (version, type) VALUES (?, ?)`, "2.0.0", "EPdesktop"); err != nil {
		return fmt.Errorf("failed to write dbInfo: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO instruments (instrumentID, serialID, model, firmwareVersion, firmwareType) VALUES (1, 0, ?, '', 0)`,
		"CSV import",
	); err != nil {
		return fmt.Errorf("failed to write instrument: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO deployments (deploymentID, instrumentID, timeOfDownload, name) VALUES (1, 1, ?, ?)`,
		time.Now().UnixMilli(), filepath.Base(rskPath),
	); err != nil {
		return fmt.Errorf("failed to write deployment: %w", err)
	}
	for _, ch := range channels {
		if _, err := tx.Exec(
			`INSERT INTO channels (channelID, shortName, longName, units) VALUES (?, ?, ?, ?)`,
			ch.ChannelID, ch.ShortName, ch.LongName, ch.Units,
		); err != nil {
			return fmt.Errorf("failed to write channel %s: %w", ch.LongName, err)
		}
	}

	// The data table's channel columns depend on the CSV, so it is built
	// here rather than in the schema migration.
	cols := make([]string, 0, len(channels)+1)
	cols = append(cols, "tstamp BIGINT")
	for i := range channels {
		cols = append(cols, fmt.Sprintf("channel%02d DOUBLE", i+1))
	}
	if _, err := tx.Exec(`CREATE TABLE data (` + strings.Join(cols, ", ") + `)`); err != nil {
		return fmt.Errorf("failed to create data table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(channels)+1), ", ")
	insert, err := tx.Prepare(`INSERT INTO data VALUES (` + placeholders + `)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	minTS := int64(math.MaxInt64)
	maxTS := int64(math.MinInt64)
	for n, row := range rows {
		if len(row) != len(channels)+1 {
			return fmt.Errorf("CSV row %d has %d fields, want %d", n+2, len(row), len(channels)+1)
		}
		ts, err := timeutil.ParseTimestamp(row[0])
		if err != nil {
			return fmt.Errorf("CSV row %d: %w", n+2, err)
		}
		if ts < minTS {
			minTS = ts
		}
		if ts > maxTS {
			maxTS = ts
		}

		args := make([]any, 0, len(channels)+1)
		args = append(args, ts)
		for _, field := range row[1:] {
			field = strings.TrimSpace(field)
			if field == "" || strings.EqualFold(field, "nan") {
				args = append(args, nil)
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return fmt.Errorf("CSV row %d has bad value %q: %w", n+2, field, err)
			}
			args = append(args, v)
		}
		if _, err := insert.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert CSV row %d: %w", n+2, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO epochs (deploymentID, startTime, endTime) VALUES (1, ?, ?)`, minTS, maxTS,
	); err != nil {
		return fmt.Errorf("failed to write epoch: %w", err)
	}
	return tx.Commit()
}

// WriteCSV renders a calibrated table as CSV with the header dialect
// consumed by CSV2RSK. With rfc3339 set, timestamps render as calendar
// time instead of millisecond epochs. NaN values render as empty fields.
func WriteCSV(w io.Writer, tbl *Table, rfc3339 bool) error {
	cw := csv.NewWriter(w)

	header := make([]string, tbl.NumCols())
	for i, name := range tbl.Names {
		unit := tbl.Units[i]
		if i == 0 && rfc3339 {
			unit = "iso8601"
		}
		header[i] = fmt.Sprintf("%s(%s)", name, unit)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, tbl.NumCols())
	for row := range tbl.Timestamps {
		if rfc3339 {
			record[0] = timeutil.FormatMillis(tbl.Timestamps[row])
		} else {
			record[0] = strconv.FormatInt(tbl.Timestamps[row], 10)
		}
		for col, v := range tbl.Values[row] {
			if math.IsNaN(v) {
				record[col+1] = ""
			} else {
				record[col+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// splitHeaderField splits "name(unit)" into its parts; the unit is
// optional.
func splitHeaderField(field string) (name, unit string) {
	field = strings.TrimSpace(field)
	open := strings.IndexByte(field, '(')
	if open < 0 || !strings.HasSuffix(field, ")") {
		return field, ""
	}
	return strings.TrimSpace(field[:open]), strings.TrimSpace(field[open+1 : len(field)-1])
}
