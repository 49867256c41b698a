package rsk

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Table is a calibrated time-series table. Column layout is fixed to
// [timestamp, channel_1..channel_k]: Names/Units carry k+1 entries with
// "timestamp" first, Timestamps holds ms-epoch instants in non-decreasing
// order, and Values holds one row per instant with k calibrated values.
// A Table is immutable once returned from a read.
type Table struct {
	Names      []string
	Units      []string
	Timestamps []int64
	Values     [][]float64

	// orders maps value column position to the channel's 1-based storage
	// order; burst tables may carry a channel subset.
	orders []int
}

// NumRows returns the number of sample rows.
func (t *Table) NumRows() int { return len(t.Timestamps) }

// NumCols returns the number of columns including the leading timestamp.
func (t *Table) NumCols() int { return len(t.Names) }

// Column returns the calibrated values of the named channel.
func (t *Table) Column(name string) ([]float64, error) {
	for i, n := range t.Names {
		if i == 0 || n != name {
			continue
		}
		col := make([]float64, len(t.Values))
		for row := range t.Values {
			col[row] = t.Values[row][i-1]
		}
		return col, nil
	}
	return nil, fmt.Errorf("table has no column %q", name)
}

// columnIndexByOrder returns the value column position for a 1-based
// channel storage order, or -1 when the channel is not in the table.
func (t *Table) columnIndexByOrder(order int) int {
	for i, o := range t.orders {
		if o == order {
			return i
		}
	}
	return -1
}

// indexRange returns the ordered row positions whose timestamps fall in
// [t1, t2], inclusive on both ends.
func (t *Table) indexRange(t1, t2 int64) []int {
	lo := sort.Search(len(t.Timestamps), func(i int) bool { return t.Timestamps[i] >= t1 })
	hi := sort.Search(len(t.Timestamps), func(i int) bool { return t.Timestamps[i] > t2 })
	if lo >= hi {
		return nil
	}
	idx := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		idx = append(idx, i)
	}
	return idx
}

// ReadData loads every stored sample in timestamp order, calibrates every
// channel, and returns the complete table. The result is also retained as
// r.Data until the recording closes.
func (r *RSK) ReadData(ctx context.Context) (*Table, error) {
	tbl, err := r.readTable(ctx, "data", nil, nil)
	if err != nil {
		return nil, err
	}
	r.Data = tbl
	r.current = tbl
	return tbl, nil
}

// ReadProcessedData loads samples whose timestamps lie in [t1, t2], either
// bound optional. It reads from the burst table when the recording has
// one, falling back to the full-resolution table otherwise, and stops
// consuming source rows as soon as t2 is exceeded so memory scales with
// the window rather than the recording. The result is retained as
// r.ProcessedData.
func (r *RSK) ReadProcessedData(ctx context.Context, t1, t2 *int64) (*Table, error) {
	if r.db == nil {
		return nil, ErrNotOpen
	}
	table := "data"
	if ok, err := r.tableExists("burstData"); err != nil {
		return nil, err
	} else if ok {
		table = "burstData"
	}
	tbl, err := r.readTable(ctx, table, t1, t2)
	if err != nil {
		return nil, err
	}
	r.ProcessedData = tbl
	r.current = tbl
	return tbl, nil
}

func (r *RSK) readTable(ctx context.Context, table string, t1, t2 *int64) (*Table, error) {
	if r.db == nil {
		return nil, ErrNotOpen
	}
	if t1 != nil && t2 != nil && *t1 > *t2 {
		return nil, fmt.Errorf("%w: t1 %d > t2 %d", ErrInvalidWindow, *t1, *t2)
	}

	// Unrecognized equations are a configuration error: fail before any
	// row is read.
	for i := range r.Calibrations {
		if err := r.Calibrations[i].validate(); err != nil {
			return nil, err
		}
	}

	q := fmt.Sprintf(`SELECT * FROM %q`, table)
	var (
		conds []string
		args  []any
	)
	if t1 != nil {
		conds = append(conds, "tstamp >= ?")
		args = append(args, *t1)
	}
	if t2 != nil {
		conds = append(conds, "tstamp <= ?")
		args = append(args, *t2)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	// Ties on tstamp keep storage order.
	q += " ORDER BY tstamp, rowid"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	tbl, tsPos, chanPos, err := r.newTableFor(table, cols)
	if err != nil {
		return nil, err
	}

	// Per-column row-local calibrations, resolved once.
	cals := make([]*Calibration, len(tbl.orders))
	for i, order := range tbl.orders {
		if cal := r.calibrationFor(order); cal != nil && !cal.seriesLevel() {
			cals[i] = cal
		}
	}

	var ts int64
	raw := make([]sql.NullFloat64, len(tbl.orders))
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any) // unexpected extra columns are scanned and dropped
	}
	dest[tsPos] = &ts
	for pos, i := range chanPos {
		dest[pos] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if t2 != nil && ts > *t2 {
			break
		}

		vals := make([]float64, len(tbl.orders))
		for i := range raw {
			v := math.NaN()
			if raw[i].Valid {
				v = raw[i].Float64
			}
			vals[i] = evaluateRow(cals[i], v)
		}
		tbl.Timestamps = append(tbl.Timestamps, ts)
		tbl.Values = append(tbl.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Series-level equations run once over the assembled window.
	for i := range r.Calibrations {
		if !r.Calibrations[i].seriesLevel() {
			continue
		}
		if err := applyTideSlope(tbl, &r.Calibrations[i]); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

// newTableFor builds the empty table for the given stored columns and
// returns the scan position of the timestamp column plus a map from scan
// position to value column index.
func (r *RSK) newTableFor(table string, cols []string) (*Table, int, map[int]int, error) {
	tsPos := -1
	chanPos := make(map[int]int)
	var orders []int

	for pos, col := range cols {
		if col == "tstamp" {
			tsPos = pos
			continue
		}
		if !strings.HasPrefix(col, "channel") {
			continue
		}
		order, err := strconv.Atoi(strings.TrimPrefix(col, "channel"))
		if err != nil || order < 1 {
			return nil, 0, nil, fmt.Errorf("%s has malformed channel column %q", table, col)
		}
		if order > len(r.Channels) {
			return nil, 0, nil, fmt.Errorf("%s column %q has no catalog entry (catalog has %d channels)",
				table, col, len(r.Channels))
		}
		chanPos[pos] = len(orders)
		orders = append(orders, order)
	}
	if tsPos < 0 {
		return nil, 0, nil, fmt.Errorf("%s has no tstamp column", table)
	}

	tbl := &Table{
		Names:  make([]string, 0, len(orders)+1),
		Units:  make([]string, 0, len(orders)+1),
		orders: orders,
	}
	tbl.Names = append(tbl.Names, "timestamp")
	tbl.Units = append(tbl.Units, "ms")
	for _, order := range orders {
		ch := r.Channels[order-1]
		tbl.Names = append(tbl.Names, ch.LongName)
		tbl.Units = append(tbl.Units, ch.Units)
	}
	return tbl, tsPos, chanPos, nil
}
