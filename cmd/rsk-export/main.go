// rsk-export writes a recording's calibrated table as CSV, optionally
// restricted to a time window to bound memory on very large recordings.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/security"
	"github.com/mooring-data/rsk.report/internal/timeutil"
	"github.com/mooring-data/rsk.report/internal/version"
)

var (
	file        = flag.String("rsk", "", "Recording to export")
	output      = flag.String("o", "", "Output CSV path (default stdout)")
	t1          = flag.String("t1", "", "Window start (ms epoch or RFC 3339)")
	t2          = flag.String("t2", "", "Window end (ms epoch or RFC 3339)")
	iso         = flag.Bool("iso", false, "Render timestamps as RFC 3339 instead of ms epoch")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("rsk-export %s (%s)\n", version.Version, version.GitSHA)
		return
	}
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	var lo, hi *int64
	if *t1 != "" {
		ms, err := timeutil.ParseTimestamp(*t1)
		if err != nil {
			log.Fatalf("bad -t1: %v", err)
		}
		lo = &ms
	}
	if *t2 != "" {
		ms, err := timeutil.ParseTimestamp(*t2)
		if err != nil {
			log.Fatalf("bad -t2: %v", err)
		}
		hi = &ms
	}

	r, err := rsk.Open(*file)
	if err != nil {
		log.Fatalf("failed to open recording: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	var tbl *rsk.Table
	if lo != nil || hi != nil {
		tbl, err = r.ReadProcessedData(ctx, lo, hi)
	} else {
		tbl, err = r.ReadData(ctx)
	}
	if err != nil {
		log.Fatalf("failed to read recording: %v", err)
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		if err := security.ValidateExportPath(*output); err != nil {
			log.Fatalf("bad -o: %v", err)
		}
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalf("failed to create %s: %v", *output, err)
		}
		defer f.Close()
		bw := bufio.NewWriter(f)
		defer bw.Flush()
		w = bw
	}

	if err := rsk.WriteCSV(w, tbl, *iso); err != nil {
		log.Fatalf("failed to write CSV: %v", err)
	}
	log.Printf("exported %d rows, %d columns", tbl.NumRows(), tbl.NumCols())
}
