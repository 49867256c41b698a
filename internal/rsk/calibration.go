package rsk

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Supported calibration equation identifiers. The set is closed: an
// equation outside it means the catalog is newer than this reader and the
// whole read fails rather than silently misreporting engineering units.
const (
	// EquationLinear: c0 + c1*raw.
	EquationLinear = "lin"
	// EquationPolynomial: c0 + c1*raw + c2*raw^2 + ...
	EquationPolynomial = "poly"
	// EquationTideSlope derives a tidal slope (units/hour) from another
	// channel's series by least-squares regression over a trailing window.
	// It operates on the whole loaded series, not row by row.
	EquationTideSlope = "deri_tideslope"
)

// seriesLevel reports whether the equation consumes a whole series rather
// than a single raw sample.
func (c *Calibration) seriesLevel() bool {
	return c.Equation == EquationTideSlope
}

// validate checks the equation identifier and the coefficient shapes it
// requires. Called once per table construction, before any row is read.
func (c *Calibration) validate() error {
	switch c.Equation {
	case EquationLinear:
		if len(c.C) < 2 {
			return fmt.Errorf("calibration %d (lin) needs 2 c coefficients, has %d", c.CalibrationID, len(c.C))
		}
	case EquationPolynomial:
		if len(c.C) == 0 {
			return fmt.Errorf("calibration %d (poly) has no c coefficients", c.CalibrationID)
		}
	case EquationTideSlope:
		if len(c.X) == 0 || math.IsNaN(c.X[0]) {
			return fmt.Errorf("calibration %d (deri_tideslope) has no source channel in x0", c.CalibrationID)
		}
	default:
		return fmt.Errorf("calibration %d has unrecognized equation %q on channel %d",
			c.CalibrationID, c.Equation, c.ChannelOrder)
	}
	return nil
}

// evaluateRow applies a row-local calibration to one raw sample. A nil
// calibration is the identity. NaN propagates per IEEE-754; no special
// casing is needed.
func evaluateRow(c *Calibration, raw float64) float64 {
	if c == nil {
		return raw
	}
	switch c.Equation {
	case EquationLinear:
		return c.C[0] + c.C[1]*raw
	case EquationPolynomial:
		// Horner's rule, highest order first.
		v := 0.0
		for i := len(c.C) - 1; i >= 0; i-- {
			v = v*raw + c.C[i]
		}
		return v
	}
	return raw
}

// applyTideSlope recomputes the calibrated column for a deri_tideslope
// calibration over the assembled table. The source channel's storage order
// is x0 and the trailing window length in samples is n0 (<= 0 or absent
// means the whole prefix). Rows with fewer than two finite source samples
// in the window get NaN. Using only the loaded rows keeps windowed reads
// self-consistent for their sub-range.
func applyTideSlope(tbl *Table, c *Calibration) error {
	dst := tbl.columnIndexByOrder(c.ChannelOrder)
	if dst < 0 {
		// Channel not part of this table (e.g. burst reads carry a channel
		// subset); nothing to derive.
		return nil
	}
	src := tbl.columnIndexByOrder(int(c.X[0]))
	if src < 0 {
		return fmt.Errorf("calibration %d (deri_tideslope) source channel %d is not in the table",
			c.CalibrationID, int(c.X[0]))
	}

	window := 0
	if len(c.N) > 0 && !math.IsNaN(c.N[0]) {
		window = int(c.N[0])
	}

	xs := make([]float64, 0, window)
	ys := make([]float64, 0, window)
	for i := range tbl.Timestamps {
		lo := 0
		if window > 0 && i-window+1 > 0 {
			lo = i - window + 1
		}

		xs = xs[:0]
		ys = ys[:0]
		for j := lo; j <= i; j++ {
			v := tbl.Values[j][src]
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, float64(tbl.Timestamps[j]-tbl.Timestamps[lo])/3.6e6) // hours
			ys = append(ys, v)
		}

		if len(xs) < 2 {
			tbl.Values[i][dst] = math.NaN()
			continue
		}
		_, slope := stat.LinearRegression(xs, ys, nil, false)
		tbl.Values[i][dst] = slope
	}
	return nil
}
