// rsk-import builds a new recording container from a CSV file with a
// "timestamp(ms),name(unit),..." header.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/version"
)

var (
	csvPath     = flag.String("csv", "", "CSV file to import")
	output      = flag.String("o", "", "Recording to create")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("rsk-import %s (%s)\n", version.Version, version.GitSHA)
		return
	}
	if *csvPath == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	r, err := rsk.CSV2RSK(*csvPath, *output)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	defer r.Close()

	log.Printf("created %s with %d channels (epoch %d .. %d)",
		*output, len(r.Channels), r.Epoch.StartTime, r.Epoch.EndTime)
}
