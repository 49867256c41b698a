// rsk-plot renders the pressure channel of a recording as a PNG, with
// detected down casts and up casts drawn in their own colours. With
// -depth the y axis is estimated depth in metres instead of raw
// pressure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/mooring-data/rsk.report/internal/config"
	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/security"
	"github.com/mooring-data/rsk.report/internal/units"
	"github.com/mooring-data/rsk.report/internal/version"
)

var (
	file        = flag.String("rsk", "", "Recording to plot")
	output      = flag.String("o", "profiles.png", "Output PNG path")
	configPath  = flag.String("config", "", "Optional JSON settings file")
	asDepth     = flag.Bool("depth", false, "Plot estimated depth in metres instead of pressure")
	pThresh     = flag.Float64("pressure-threshold", 0, "Cast detection hysteresis (0 = config or default)")
	cThresh     = flag.Float64("conductivity-threshold", 0, "In-water conductivity floor (0 = config or default)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("rsk-plot %s (%s)\n", version.Version, version.GitSHA)
		return
	}
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := security.ValidateExportPath(*output); err != nil {
		log.Fatalf("bad -o: %v", err)
	}

	var settings *config.Settings
	if *configPath != "" {
		var err error
		settings, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	pressureThreshold := *pThresh
	if pressureThreshold == 0 {
		pressureThreshold = settings.GetPressureThreshold()
	}
	conductivityThreshold := *cThresh
	if conductivityThreshold == 0 {
		conductivityThreshold = settings.GetConductivityThreshold()
	}

	r, err := rsk.Open(*file)
	if err != nil {
		log.Fatalf("failed to open recording: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	tbl, err := r.ReadData(ctx)
	if err != nil {
		log.Fatalf("failed to read recording: %v", err)
	}
	pressure, err := tbl.Column(rsk.ChannelPressure)
	if err != nil {
		log.Fatalf("nothing to plot: %v", err)
	}

	yLabel := "pressure (dbar)"
	ys := pressure
	if *asDepth {
		yLabel = "depth (m)"
		ys = make([]float64, len(pressure))
		for i, v := range pressure {
			sea := units.SeaPressure(v, settings.GetAtmosphericPressure())
			ys[i] = units.DepthFromSeaPressure(sea, settings.GetSeawaterDensity())
		}
	}

	if err := r.ComputeProfiles(pressureThreshold, conductivityThreshold); err != nil {
		// Recordings without a conductivity channel still get the raw
		// trace.
		if !errors.Is(err, rsk.ErrNoConductivity) {
			log.Fatalf("profile detection failed: %v", err)
		}
		log.Printf("skipping cast detection: %v", err)
	}

	p := plot.New()
	p.Title.Text = *file
	p.X.Label.Text = "time (hours)"
	p.Y.Label.Text = yLabel

	t0 := tbl.Timestamps[0]
	hours := func(i int) float64 { return float64(tbl.Timestamps[i]-t0) / 3.6e6 }

	base := make(plotter.XYs, 0, len(ys))
	for i, v := range ys {
		if math.IsNaN(v) {
			continue
		}
		base = append(base, plotter.XY{X: hours(i), Y: v})
	}
	baseLine, err := plotter.NewLine(base)
	if err != nil {
		log.Fatalf("failed to build base line: %v", err)
	}
	baseLine.Color = color.Gray{Y: 160}
	baseLine.Width = vg.Points(1)
	p.Add(baseLine)
	p.Legend.Add(yLabel, baseLine)

	addCasts := func(dir rsk.Direction, c color.Color, label string) {
		sets, err := r.GetProfilesIndices(dir)
		if err != nil {
			log.Printf("no %s casts plotted: %v", label, err)
			return
		}
		var legend *plotter.Line
		for _, idx := range sets {
			pts := make(plotter.XYs, 0, len(idx))
			for _, i := range idx {
				if math.IsNaN(ys[i]) {
					continue
				}
				pts = append(pts, plotter.XY{X: hours(i), Y: ys[i]})
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				continue
			}
			line.Color = c
			line.Width = vg.Points(2)
			p.Add(line)
			legend = line
		}
		if legend != nil {
			p.Legend.Add(label, legend)
		}
	}
	addCasts(rsk.DirectionDown, color.RGBA{B: 255, A: 255}, "down cast")
	addCasts(rsk.DirectionUp, color.RGBA{R: 255, A: 255}, "up cast")

	if err := p.Save(14*vg.Inch, 6*vg.Inch, *output); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	log.Printf("wrote %s", *output)
}
