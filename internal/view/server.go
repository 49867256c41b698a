// Package view serves a small browser UI over an open recording: a
// metadata summary, the region catalog, and a pressure/profile chart
// rendered with go-echarts.
package view

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"

	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/timeutil"
)

type Server struct {
	rsk            *rsk.RSK
	chartMaxPoints int
}

// Option configures a Server.
type Option func(*Server)

// WithChartMaxPoints sets the default downsampling target for the chart
// handler. Values under 100 are ignored.
func WithChartMaxPoints(n int) Option {
	return func(s *Server) {
		if n >= 100 {
			s.chartMaxPoints = n
		}
	}
}

func NewServer(r *rsk.RSK, opts ...Option) *Server {
	s := &Server{rsk: r, chartMaxPoints: 8000}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/regions", s.listRegions)
	mux.HandleFunc("/chart", s.pressureChart)
	mux.HandleFunc("/api/summary", s.apiSummary)
	mux.HandleFunc("/api/regions", s.apiRegions)
	return mux
}

// WithRequestLog logs each request with a per-request ID so chart loads
// and tailsql queries can be correlated in the log.
func (s *Server) WithRequestLog(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		start := time.Now()
		h.ServeHTTP(w, r)
		log.Printf("request %s: %s %s (%s)", id, r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Recording: %s\n", s.rsk.Filename)
	if inst := s.rsk.Instrument; inst != nil {
		fmt.Fprintf(w, "Instrument: %s serial %d (firmware %s)\n", inst.Model, inst.SerialID, inst.FirmwareVersion)
	}
	if ep := s.rsk.Epoch; ep != nil {
		fmt.Fprintf(w, "Epoch: %s .. %s\n", timeutil.FormatMillis(ep.StartTime), timeutil.FormatMillis(ep.EndTime))
	}
	fmt.Fprintf(w, "Channels: %d\n", len(s.rsk.Channels))
	for i, ch := range s.rsk.Channels {
		fmt.Fprintf(w, "  %2d %s (%s)\n", i+1, ch.LongName, ch.Units)
	}
	fmt.Fprintf(w, "Regions: %d\n", len(s.rsk.Regions))
}

func (s *Server) listRegions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	for _, reg := range s.rsk.Regions {
		tag := reg.Kind.String()
		if reg.Kind == rsk.RegionCast {
			tag += "/" + reg.Direction.String()
		}
		fmt.Fprintf(w, "%-12s %s .. %s %s\n",
			tag, timeutil.FormatMillis(reg.Tstamp1), timeutil.FormatMillis(reg.Tstamp2), reg.Label)
	}
}

// pressureChart renders the pressure channel of the most recent read as
// an HTML line chart. Query params:
//   - max_points (optional; defaults to the server setting) to reduce
//     payload size
func (s *Server) pressureChart(w http.ResponseWriter, r *http.Request) {
	tbl := s.rsk.Data
	if tbl == nil {
		var err error
		tbl, err = s.rsk.ReadData(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to read recording: %v", err), http.StatusInternalServerError)
			return
		}
	}

	pressure, err := tbl.Column(rsk.ChannelPressure)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	maxPoints := s.chartMaxPoints
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 100 && v <= 50000 {
			maxPoints = v
		}
	}
	stride := 1
	if len(pressure) > maxPoints {
		stride = len(pressure) / maxPoints
	}

	var (
		xs []string
		ys []opts.LineData
	)
	for i := 0; i < len(pressure); i += stride {
		xs = append(xs, timeutil.FormatMillis(tbl.Timestamps[i]))
		ys = append(ys, opts.LineData{Value: pressure[i]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "pressure", Subtitle: s.rsk.Filename}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(xs).AddSeries("pressure", ys)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		log.Printf("failed to render chart: %v", err)
	}
}
