// rsk-info prints the metadata catalogs of a recording: instrument,
// deployment, schedule, channels, calibrations and region counts.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/timeutil"
	"github.com/mooring-data/rsk.report/internal/version"
)

var (
	file        = flag.String("rsk", "", "Recording to inspect")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("rsk-info %s (%s)\n", version.Version, version.GitSHA)
		return
	}
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	r, err := rsk.Open(*file)
	if err != nil {
		log.Fatalf("failed to open recording: %v", err)
	}
	defer r.Close()

	if r.DbInfo != nil {
		fmt.Printf("Container:   %s (schema %s)\n", r.DbInfo.Type, r.DbInfo.Version)
	}
	if inst := r.Instrument; inst != nil {
		fmt.Printf("Instrument:  %s serial %d firmware %s\n", inst.Model, inst.SerialID, inst.FirmwareVersion)
	}
	if dep := r.Deployment; dep != nil {
		fmt.Printf("Deployment:  %s downloaded %s\n", dep.Name, timeutil.FormatMillis(dep.TimeOfDownload))
	}
	if sch := r.Schedule; sch != nil {
		fmt.Printf("Schedule:    mode %q gate %q\n", sch.Mode, sch.Gate)
	}
	if ep := r.Epoch; ep != nil {
		fmt.Printf("Epoch:       %s .. %s\n", timeutil.FormatMillis(ep.StartTime), timeutil.FormatMillis(ep.EndTime))
	}

	fmt.Printf("Channels:    %d\n", len(r.Channels))
	for i, ch := range r.Channels {
		cal := " "
		for _, c := range r.Calibrations {
			if c.ChannelOrder == i+1 {
				cal = fmt.Sprintf(" [%s %s]", c.Type, c.Equation)
			}
		}
		fmt.Printf("  %2d %-28s %s%s\n", i+1, ch.LongName, ch.Units, cal)
	}

	fmt.Printf("Regions:     %d\n", len(r.Regions))
	for _, kind := range []rsk.RegionKind{
		rsk.RegionComment, rsk.RegionGeoData, rsk.RegionCal,
		rsk.RegionExclude, rsk.RegionCast, rsk.RegionProfile,
	} {
		if n := len(r.GetRegionsByTypes(kind)); n > 0 {
			fmt.Printf("  %-10s %d\n", kind, n)
		}
	}
}
