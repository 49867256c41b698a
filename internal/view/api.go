package view

import (
	"net/http"

	"github.com/mooring-data/rsk.report/internal/httputil"
	"github.com/mooring-data/rsk.report/internal/rsk"
)

type summaryResponse struct {
	Filename   string          `json:"filename"`
	Instrument *instrumentInfo `json:"instrument,omitempty"`
	Epoch      *epochInfo      `json:"epoch,omitempty"`
	Channels   []channelInfo   `json:"channels"`
	Regions    map[string]int  `json:"regions"`
}

type instrumentInfo struct {
	Model           string `json:"model"`
	SerialID        int64  `json:"serial_id"`
	FirmwareVersion string `json:"firmware_version"`
}

type epochInfo struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`
}

type channelInfo struct {
	LongName string `json:"long_name"`
	Units    string `json:"units"`
}

type regionResponse struct {
	RegionID  int64  `json:"region_id"`
	Kind      string `json:"kind"`
	Direction string `json:"direction,omitempty"`
	Tstamp1   int64  `json:"tstamp1"`
	Tstamp2   int64  `json:"tstamp2"`
	Label     string `json:"label,omitempty"`
}

func (s *Server) apiSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	resp := summaryResponse{
		Filename: s.rsk.Filename,
		Regions:  map[string]int{},
	}
	if inst := s.rsk.Instrument; inst != nil {
		resp.Instrument = &instrumentInfo{
			Model:           inst.Model,
			SerialID:        inst.SerialID,
			FirmwareVersion: inst.FirmwareVersion,
		}
	}
	if ep := s.rsk.Epoch; ep != nil {
		resp.Epoch = &epochInfo{StartTime: ep.StartTime, EndTime: ep.EndTime}
	}
	for _, ch := range s.rsk.Channels {
		resp.Channels = append(resp.Channels, channelInfo{LongName: ch.LongName, Units: ch.Units})
	}
	for _, reg := range s.rsk.Regions {
		resp.Regions[reg.Kind.String()]++
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) apiRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	regions := s.rsk.Regions
	if kindParam := r.URL.Query().Get("kind"); kindParam != "" {
		kind, ok := regionKindParam(kindParam)
		if !ok {
			httputil.BadRequest(w, "unknown region kind: "+kindParam)
			return
		}
		regions = s.rsk.GetRegionsByTypes(kind)
	}

	resp := make([]regionResponse, 0, len(regions))
	for _, reg := range regions {
		out := regionResponse{
			RegionID: reg.RegionID,
			Kind:     reg.Kind.String(),
			Tstamp1:  reg.Tstamp1,
			Tstamp2:  reg.Tstamp2,
			Label:    reg.Label,
		}
		if reg.Kind == rsk.RegionCast {
			out.Direction = reg.Direction.String()
		}
		resp = append(resp, out)
	}
	httputil.WriteJSONOK(w, resp)
}

func regionKindParam(s string) (rsk.RegionKind, bool) {
	kinds := map[string]rsk.RegionKind{
		"comment": rsk.RegionComment,
		"geodata": rsk.RegionGeoData,
		"cal":     rsk.RegionCal,
		"exclude": rsk.RegionExclude,
		"cast":    rsk.RegionCast,
		"profile": rsk.RegionProfile,
	}
	kind, ok := kinds[s]
	return kind, ok
}
