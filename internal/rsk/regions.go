package rsk

import (
	"database/sql"
	"fmt"
	"math"
)

// RegionKind is the closed set of region variants. Consumers switch on the
// kind rather than on concrete types.
type RegionKind int

const (
	RegionComment RegionKind = iota
	RegionGeoData
	RegionCal
	RegionExclude
	RegionCast
	RegionProfile
)

func (k RegionKind) String() string {
	switch k {
	case RegionComment:
		return "comment"
	case RegionGeoData:
		return "geodata"
	case RegionCal:
		return "cal"
	case RegionExclude:
		return "exclude"
	case RegionCast:
		return "cast"
	case RegionProfile:
		return "profile"
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

// CastDirection tags a cast region as a descent or an ascent.
type CastDirection int

const (
	CastDown CastDirection = iota
	CastUp
)

func (d CastDirection) String() string {
	if d == CastUp {
		return "up"
	}
	return "down"
}

// Region is a tagged time interval over the recording's time axis.
// Tstamp1 <= Tstamp2, both inclusive, in ms epoch. Direction is only
// meaningful for Kind == RegionCast; Latitude/Longitude only for
// RegionGeoData (NaN otherwise).
type Region struct {
	RegionID     int64
	Kind         RegionKind
	DeploymentID int64
	Tstamp1      int64
	Tstamp2      int64
	Label        string
	Description  string
	Direction    CastDirection
	Latitude     float64
	Longitude    float64
}

// GetRegionsByTypes filters the region catalog to the requested kinds,
// preserving catalog order. Purely a read.
func (r *RSK) GetRegionsByTypes(kinds ...RegionKind) []Region {
	want := make(map[RegionKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Region
	for _, reg := range r.Regions {
		if want[reg.Kind] {
			out = append(out, reg)
		}
	}
	return out
}

func regionKindFromString(s string) (RegionKind, bool) {
	switch s {
	case "COMMENT":
		return RegionComment, true
	case "GPS", "GEODATA":
		return RegionGeoData, true
	case "CAL", "CALIBRATION":
		return RegionCal, true
	case "EXCLUSION", "EXCLUDE":
		return RegionExclude, true
	case "CAST":
		return RegionCast, true
	case "PROFILE":
		return RegionProfile, true
	}
	return 0, false
}

func regionKindToString(k RegionKind) string {
	switch k {
	case RegionComment:
		return "COMMENT"
	case RegionGeoData:
		return "GPS"
	case RegionCal:
		return "CAL"
	case RegionExclude:
		return "EXCLUSION"
	case RegionCast:
		return "CAST"
	default:
		return "PROFILE"
	}
}

func (r *RSK) loadRegions() error {
	ok, err := r.tableExists("region")
	if err != nil || !ok {
		return err
	}

	castDirs, err := r.loadCastDirections()
	if err != nil {
		return err
	}
	geo, err := r.loadGeoData()
	if err != nil {
		return err
	}

	rows, err := r.db.Query(
		`SELECT regionID, type, tstamp1, tstamp2, label, description
		 FROM region ORDER BY regionID`,
	)
	if err != nil {
		return fmt.Errorf("failed to load regions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			reg                Region
			typ                string
			label, description sql.NullString
		)
		if err := rows.Scan(&reg.RegionID, &typ, &reg.Tstamp1, &reg.Tstamp2, &label, &description); err != nil {
			return fmt.Errorf("failed to scan region: %w", err)
		}

		kind, ok := regionKindFromString(typ)
		if !ok {
			return fmt.Errorf("region %d has unknown type %q", reg.RegionID, typ)
		}
		reg.Kind = kind
		reg.Label = label.String
		reg.Description = description.String
		reg.Latitude = math.NaN()
		reg.Longitude = math.NaN()
		if r.Deployment != nil {
			reg.DeploymentID = r.Deployment.DeploymentID
		}

		if kind == RegionCast {
			if dir, ok := castDirs[reg.RegionID]; ok {
				reg.Direction = dir
			}
		}
		if kind == RegionGeoData {
			if pos, ok := geo[reg.RegionID]; ok {
				reg.Latitude, reg.Longitude = pos[0], pos[1]
			}
		}

		r.Regions = append(r.Regions, reg)
	}
	return rows.Err()
}

func (r *RSK) loadCastDirections() (map[int64]CastDirection, error) {
	ok, err := r.tableExists("regionCast")
	if err != nil || !ok {
		return nil, err
	}

	rows, err := r.db.Query(`SELECT regionID, type FROM regionCast`)
	if err != nil {
		return nil, fmt.Errorf("failed to load cast directions: %w", err)
	}
	defer rows.Close()

	dirs := make(map[int64]CastDirection)
	for rows.Next() {
		var (
			id  int64
			typ string
		)
		if err := rows.Scan(&id, &typ); err != nil {
			return nil, err
		}
		switch typ {
		case "DOWN":
			dirs[id] = CastDown
		case "UP":
			dirs[id] = CastUp
		default:
			return nil, fmt.Errorf("cast region %d has unknown direction %q", id, typ)
		}
	}
	return dirs, rows.Err()
}

func (r *RSK) loadGeoData() (map[int64][2]float64, error) {
	ok, err := r.tableExists("regionGeoData")
	if err != nil || !ok {
		return nil, err
	}

	rows, err := r.db.Query(`SELECT regionID, latitude, longitude FROM regionGeoData`)
	if err != nil {
		return nil, fmt.Errorf("failed to load geodata regions: %w", err)
	}
	defer rows.Close()

	geo := make(map[int64][2]float64)
	for rows.Next() {
		var (
			id       int64
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&id, &lat, &lon); err != nil {
			return nil, err
		}
		pos := [2]float64{math.NaN(), math.NaN()}
		if lat.Valid {
			pos[0] = lat.Float64
		}
		if lon.Valid {
			pos[1] = lon.Float64
		}
		geo[id] = pos
	}
	return geo, rows.Err()
}
