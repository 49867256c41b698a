package rsk

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeProfilesRequiresConductivity(t *testing.T) {
	channels := []Channel{
		{ShortName: "temp14", LongName: "temperature", Units: "°C"},
		{ShortName: "pres24", LongName: ChannelPressure, Units: "dbar"},
	}
	path := newTestRecording(t, channels)
	db := openTestDB(t, path)
	insertRow(t, db, 1000, 8.5, 10.0)

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadData(context.Background())
	require.NoError(t, err)

	err = r.ComputeProfiles(0, 0)
	assert.ErrorIs(t, err, ErrNoConductivity)
	assert.Empty(t, r.Regions, "a failed call must not mutate the region catalog")
}

func TestComputeProfilesRequiresData(t *testing.T) {
	path, _ := profilingFixture(t, 1)
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.ComputeProfiles(0, 0)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Empty(t, r.Regions)
}

func TestComputeProfilesDetectsCasts(t *testing.T) {
	path, _ := profilingFixture(t, 3)
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadData(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.ComputeProfiles(0, 0))

	casts := r.GetRegionsByTypes(RegionCast)
	profiles := r.GetRegionsByTypes(RegionProfile)
	assert.Len(t, casts, 6)
	assert.Len(t, profiles, 3)

	// Each pair alternates down then up and the enclosing profile spans
	// both legs exactly.
	for i := 0; i < len(casts); i += 2 {
		down, up := casts[i], casts[i+1]
		assert.Equal(t, CastDown, down.Direction, "cast %d", i)
		assert.Equal(t, CastUp, up.Direction, "cast %d", i+1)
		assert.LessOrEqual(t, down.Tstamp2, up.Tstamp1)

		profile := profiles[i/2]
		assert.Equal(t, down.Tstamp1, profile.Tstamp1)
		assert.Equal(t, up.Tstamp2, profile.Tstamp2)
	}

	// Catalog stores each triple as cast, cast, profile.
	for i := 0; i+2 < len(r.Regions); i += 3 {
		assert.Equal(t, RegionCast, r.Regions[i].Kind)
		assert.Equal(t, RegionCast, r.Regions[i+1].Kind)
		assert.Equal(t, RegionProfile, r.Regions[i+2].Kind)
	}
}

func TestComputeProfilesAppendsAfterExisting(t *testing.T) {
	path, ts := profilingFixture(t, 2)
	db := openTestDB(t, path)
	insertRegion(t, db, 1, RegionComment, ts[0], ts[len(ts)-1], "")

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.Regions, 1)
	existing := r.Regions[0]

	_, err = r.ReadData(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.ComputeProfiles(0, 0))

	require.Greater(t, len(r.Regions), 1)
	// Regions carry NaN coordinates outside geodata, so equality needs a
	// NaN-aware comparison.
	require.True(t, math.IsNaN(existing.Latitude))
	if diff := cmp.Diff(existing, r.Regions[0], cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("pre-existing region changed (-before +after):\n%s", diff)
	}
	for _, reg := range r.Regions[1:] {
		assert.Contains(t, []RegionKind{RegionCast, RegionProfile}, reg.Kind)
	}

	// Re-running appends again rather than deduplicating: catalog growth
	// is the evidence of re-detection.
	before := len(r.Regions)
	require.NoError(t, r.ComputeProfiles(0, 0))
	assert.Equal(t, 2*(before-1)+1, len(r.Regions))
}

func TestGetProfilesIndicesSelection(t *testing.T) {
	path, _ := profilingFixture(t, 3)
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadData(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.ComputeProfiles(0, 0))

	both, err := r.GetProfilesIndices(DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, both, 3)

	one, err := r.GetProfilesIndices(DirectionBoth, 0)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	two, err := r.GetProfilesIndices(DirectionBoth, 0, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	_, err = r.GetProfilesIndices(DirectionBoth, 3)
	assert.Error(t, err, "index == profile count is out of range")
	_, err = r.GetProfilesIndices(DirectionBoth, -1)
	assert.Error(t, err)
	_, err = r.GetProfilesIndices(DirectionBoth, 0, 3)
	assert.Error(t, err, "a mixed valid/invalid request fails whole")
}

func TestGetProfilesIndicesBoundaryAgreement(t *testing.T) {
	path, _ := profilingFixture(t, 3)
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	tbl, err := r.ReadData(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.ComputeProfiles(0, 0))

	both, err := r.GetProfilesIndices(DirectionBoth)
	require.NoError(t, err)
	down, err := r.GetProfilesIndices(DirectionDown)
	require.NoError(t, err)
	up, err := r.GetProfilesIndices(DirectionUp)
	require.NoError(t, err)

	triples := r.profileTriples()
	require.Len(t, triples, 3)
	for i, tr := range triples {
		require.NotEmpty(t, both[i])
		assert.Equal(t, tr.profile.Tstamp1, tbl.Timestamps[both[i][0]], "profile %d start", i)
		assert.Equal(t, tr.profile.Tstamp2, tbl.Timestamps[both[i][len(both[i])-1]], "profile %d end", i)

		var downCast, upCast Region
		for _, c := range tr.casts {
			if c.Direction == CastDown {
				downCast = c
			} else {
				upCast = c
			}
		}
		require.NotEmpty(t, down[i])
		assert.Equal(t, downCast.Tstamp1, tbl.Timestamps[down[i][0]], "down cast %d start", i)
		assert.Equal(t, downCast.Tstamp2, tbl.Timestamps[down[i][len(down[i])-1]], "down cast %d end", i)
		require.NotEmpty(t, up[i])
		assert.Equal(t, upCast.Tstamp1, tbl.Timestamps[up[i][0]], "up cast %d start", i)
		assert.Equal(t, upCast.Tstamp2, tbl.Timestamps[up[i][len(up[i])-1]], "up cast %d end", i)

		// Index sets are contiguous row ranges.
		for j := 1; j < len(both[i]); j++ {
			require.Equal(t, both[i][j-1]+1, both[i][j])
		}
	}
}

func TestGetProfilesIndicesPrepopulated(t *testing.T) {
	path, ts := profilingFixture(t, 2)
	db := openTestDB(t, path)

	// One region of every non-profile tag plus two cast/cast/profile
	// triples, the way firmware pre-populates a recording.
	insertRegion(t, db, 1, RegionComment, ts[0], ts[1], "")
	insertRegion(t, db, 2, RegionGeoData, ts[0], ts[0], "")
	insertRegion(t, db, 3, RegionCal, ts[0], ts[2], "")
	insertRegion(t, db, 4, RegionExclude, ts[2], ts[3], "")
	id := int64(5)
	nProfiles := 2
	for p := 0; p < nProfiles; p++ {
		base := 5 + p*20
		insertRegion(t, db, id, RegionCast, ts[base], ts[base+10], "DOWN")
		insertRegion(t, db, id+1, RegionCast, ts[base+10], ts[base+19], "UP")
		insertRegion(t, db, id+2, RegionProfile, ts[base], ts[base+19], "")
		id += 3
	}

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Len(t, r.Regions, 10)
	assert.Len(t, r.GetRegionsByTypes(RegionComment), 1)
	assert.Len(t, r.GetRegionsByTypes(RegionGeoData), 1)
	assert.Len(t, r.GetRegionsByTypes(RegionCal), 1)
	assert.Len(t, r.GetRegionsByTypes(RegionExclude), 1)
	assert.Len(t, r.GetRegionsByTypes(RegionCast, RegionProfile), 6)

	tbl, err := r.ReadData(context.Background())
	require.NoError(t, err)

	for _, dir := range []Direction{DirectionBoth, DirectionDown, DirectionUp} {
		sets, err := r.GetProfilesIndices(dir)
		require.NoError(t, err)
		require.Len(t, sets, nProfiles, "direction %s", dir)
		for i, idx := range sets {
			require.NotEmpty(t, idx, "profile %d direction %s", i, dir)
			assert.True(t, tbl.Timestamps[idx[0]] >= ts[0])
		}
	}
}

func TestDetectCastsIgnoresInAirNoise(t *testing.T) {
	// Pressure swings while conductivity says in-air must not become
	// casts.
	pressure := []float64{0, 5, 0, 6, 0, 7, 0}
	conductivity := []float64{0, 0, 0, 0, 0, 0, 0}
	spans := detectCasts(pressure, conductivity, 3, 0.05)
	assert.Empty(t, spans)
}

func TestDetectCastsHysteresis(t *testing.T) {
	wet := func(n int) []float64 {
		c := make([]float64, n)
		for i := range c {
			c[i] = 50
		}
		return c
	}

	// Excursions below the threshold never confirm a cast.
	pressure := []float64{0, 1, 2, 1, 0, 1, 2, 1, 0}
	spans := detectCasts(pressure, wet(len(pressure)), 3, 0.05)
	assert.Empty(t, spans)

	// One clean dip yields one down and one up cast.
	pressure = []float64{0, 2, 4, 6, 8, 10, 8, 6, 4, 2, 0}
	spans = detectCasts(pressure, wet(len(pressure)), 3, 0.05)
	require.Len(t, spans, 2)
	assert.Equal(t, CastDown, spans[0].dir)
	assert.Equal(t, 0, spans[0].start)
	assert.Equal(t, 5, spans[0].end, "down cast ends at the pressure maximum")
	assert.Equal(t, CastUp, spans[1].dir)
	assert.Equal(t, 6, spans[1].start)
	assert.Equal(t, 10, spans[1].end)

	// NaN pressure samples are skipped without breaking the cast.
	pressure = []float64{0, 2, math.NaN(), 6, 8, 10, 8, math.NaN(), 4, 2, 0}
	spans = detectCasts(pressure, wet(len(pressure)), 3, 0.05)
	require.Len(t, spans, 2)

	// Surfacing mid-series closes the open cast and restarts detection.
	pressure = []float64{0, 4, 8, 4, 0, 0, 0, 4, 8, 4, 0}
	conductivity := wet(len(pressure))
	conductivity[5] = 0.0
	spans = detectCasts(pressure, conductivity, 3, 0.05)
	require.Len(t, spans, 4)
	assert.Equal(t, CastDown, spans[0].dir)
	assert.Equal(t, CastUp, spans[1].dir)
	assert.Equal(t, CastDown, spans[2].dir)
	assert.Equal(t, CastUp, spans[3].dir)
}
