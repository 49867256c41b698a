package rsk

import (
	"fmt"
	"math"

	"github.com/mooring-data/rsk.report/internal/monitoring"
)

// Default detection thresholds, used when the caller passes a
// non-positive value.
const (
	// DefaultPressureThreshold is the hysteresis band in pressure units a
	// monotonic excursion must exceed to confirm a cast.
	DefaultPressureThreshold = 3.0
	// DefaultConductivityThreshold separates in-water from in-air samples.
	DefaultConductivityThreshold = 0.05
)

// Direction selects which leg of a profile an index query covers.
type Direction int

const (
	DirectionBoth Direction = iota
	DirectionDown
	DirectionUp
)

func (d Direction) String() string {
	switch d {
	case DirectionDown:
		return "down"
	case DirectionUp:
		return "up"
	}
	return "both"
}

type castSpan struct {
	start, end int
	dir        CastDirection
}

type detectState int

const (
	stateIdle detectState = iota
	stateDescending
	stateAscending
)

// ComputeProfiles detects up/down casts on the pressure channel of the
// most recently read table and appends the resulting Cast/Profile regions
// to the region catalog. Pre-existing regions are never touched; detected
// regions are appended after them, duplicates included, so catalog growth
// is the signal that re-detection happened.
//
// Samples whose conductivity is below conductivityThreshold are treated as
// in-air and terminate any open cast. A recording without a conductivity
// channel cannot be segmented: the call fails without mutating the
// catalog. Non-positive thresholds select the defaults.
func (r *RSK) ComputeProfiles(pressureThreshold, conductivityThreshold float64) error {
	if r.db == nil {
		return ErrNotOpen
	}
	if !r.ChannelExists(ChannelConductivity) {
		return fmt.Errorf("cannot compute profiles: %w", ErrNoConductivity)
	}
	tbl := r.current
	if tbl == nil {
		return fmt.Errorf("cannot compute profiles: %w", ErrNoData)
	}
	if pressureThreshold <= 0 {
		pressureThreshold = DefaultPressureThreshold
	}
	if conductivityThreshold <= 0 {
		conductivityThreshold = DefaultConductivityThreshold
	}

	pressure, err := tbl.Column(ChannelPressure)
	if err != nil {
		return fmt.Errorf("cannot compute profiles: %w", err)
	}
	conductivity, err := tbl.Column(ChannelConductivity)
	if err != nil {
		return fmt.Errorf("cannot compute profiles: %w", err)
	}

	spans := detectCasts(pressure, conductivity, pressureThreshold, conductivityThreshold)

	var deploymentID int64
	if r.Deployment != nil {
		deploymentID = r.Deployment.DeploymentID
	}
	cast := func(s castSpan) Region {
		return Region{
			Kind:         RegionCast,
			DeploymentID: deploymentID,
			Tstamp1:      tbl.Timestamps[s.start],
			Tstamp2:      tbl.Timestamps[s.end],
			Direction:    s.dir,
			Latitude:     math.NaN(),
			Longitude:    math.NaN(),
		}
	}

	// Two consecutive opposite-direction casts pair into one profile; the
	// catalog stores each triple as cast, cast, profile.
	nProfiles := 0
	for i := 0; i < len(spans); {
		if i+1 < len(spans) && spans[i+1].dir != spans[i].dir {
			r.Regions = append(r.Regions, cast(spans[i]), cast(spans[i+1]), Region{
				Kind:         RegionProfile,
				DeploymentID: deploymentID,
				Tstamp1:      tbl.Timestamps[spans[i].start],
				Tstamp2:      tbl.Timestamps[spans[i+1].end],
				Latitude:     math.NaN(),
				Longitude:    math.NaN(),
			})
			nProfiles++
			i += 2
			continue
		}
		// Trailing unpaired cast: kept, but forms no profile.
		r.Regions = append(r.Regions, cast(spans[i]))
		i++
	}
	monitoring.Logf("detected %d casts (%d profiles) in %s", len(spans), nProfiles, r.Filename)
	return nil
}

// detectCasts runs the hysteresis state machine over the pressure series.
// A cast opens at the extremum preceding a confirmed excursion of at least
// pThresh and closes at the extremum where the opposite excursion is
// confirmed; ties on the extremum keep the earliest sample. In-air samples
// (conductivity below cThresh) close the open cast at its extremum and
// reset the machine.
func detectCasts(pressure, conductivity []float64, pThresh, cThresh float64) []castSpan {
	var spans []castSpan

	state := stateIdle
	castStart := -1
	extIdx := -1      // extremum of the current direction of travel
	extVal := math.NaN()
	minIdx, maxIdx := -1, -1 // extrema seen while idle
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)

	reset := func() {
		state = stateIdle
		castStart = -1
		extIdx = -1
		minIdx, maxIdx = -1, -1
		minVal = math.Inf(1)
		maxVal = math.Inf(-1)
	}
	closeCast := func() {
		if extIdx > castStart {
			dir := CastDown
			if state == stateAscending {
				dir = CastUp
			}
			spans = append(spans, castSpan{start: castStart, end: extIdx, dir: dir})
		}
	}

	for i, p := range pressure {
		if math.IsNaN(p) {
			continue
		}
		if math.IsNaN(conductivity[i]) || conductivity[i] < cThresh {
			if state != stateIdle {
				closeCast()
			}
			reset()
			continue
		}

		switch state {
		case stateIdle:
			if p < minVal {
				minVal, minIdx = p, i
			}
			if p > maxVal {
				maxVal, maxIdx = p, i
			}
			if p-minVal >= pThresh {
				state = stateDescending
				castStart = minIdx
				extVal, extIdx = p, i
			} else if maxVal-p >= pThresh {
				state = stateAscending
				castStart = maxIdx
				extVal, extIdx = p, i
			}

		case stateDescending:
			if p > extVal {
				extVal, extIdx = p, i
			} else if extVal-p >= pThresh {
				closeCast()
				state = stateAscending
				castStart = extIdx + 1
				extVal, extIdx = p, i
			}

		case stateAscending:
			if p < extVal {
				extVal, extIdx = p, i
			} else if p-extVal >= pThresh {
				closeCast()
				state = stateDescending
				castStart = extIdx + 1
				extVal, extIdx = p, i
			}
		}
	}
	if state != stateIdle {
		closeCast()
	}
	return spans
}

// profileTriple groups one profile region with its two casts in catalog
// discovery order.
type profileTriple struct {
	casts   [2]Region
	profile Region
}

// profileTriples scans the region catalog for cast, cast, profile runs.
func (r *RSK) profileTriples() []profileTriple {
	var cp []Region
	for _, reg := range r.Regions {
		if reg.Kind == RegionCast || reg.Kind == RegionProfile {
			cp = append(cp, reg)
		}
	}

	var triples []profileTriple
	for i := 0; i < len(cp); {
		if i+2 < len(cp) &&
			cp[i].Kind == RegionCast && cp[i+1].Kind == RegionCast && cp[i+2].Kind == RegionProfile {
			triples = append(triples, profileTriple{
				casts:   [2]Region{cp[i], cp[i+1]},
				profile: cp[i+2],
			})
			i += 3
			continue
		}
		i++
	}
	return triples
}

// GetProfilesIndices returns, per selected profile, the ordered row
// positions in the most recently read table whose timestamps fall within
// the matching region span: the whole profile for DirectionBoth, or the
// matching cast leg for DirectionDown/DirectionUp. With no profile
// arguments every profile is returned in catalog discovery order. Any
// out-of-range profile index fails the whole call.
func (r *RSK) GetProfilesIndices(direction Direction, profiles ...int) ([][]int, error) {
	if r.db == nil {
		return nil, ErrNotOpen
	}
	tbl := r.current
	if tbl == nil {
		return nil, fmt.Errorf("cannot query profile indices: %w", ErrNoData)
	}

	triples := r.profileTriples()
	selected := profiles
	if len(selected) == 0 {
		selected = make([]int, len(triples))
		for i := range selected {
			selected[i] = i
		}
	}
	for _, idx := range selected {
		if idx < 0 || idx >= len(triples) {
			return nil, fmt.Errorf("profile index %d out of range [0, %d)", idx, len(triples))
		}
	}

	out := make([][]int, 0, len(selected))
	for _, idx := range selected {
		t := triples[idx]
		var span Region
		switch direction {
		case DirectionBoth:
			span = t.profile
		default:
			want := CastDown
			if direction == DirectionUp {
				want = CastUp
			}
			found := false
			for _, c := range t.casts {
				if c.Direction == want {
					span = c
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("profile %d has no %s cast", idx, direction)
			}
		}
		out = append(out, tbl.indexRange(span.Tstamp1, span.Tstamp2))
	}
	return out, nil
}
