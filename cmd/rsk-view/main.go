// rsk-view serves a browser UI over a recording: metadata summary, region
// catalog, a pressure chart, a JSON API, and (with -debug) a tailsql
// surface for live SQL against the container.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/mooring-data/rsk.report/internal/config"
	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/version"
	"github.com/mooring-data/rsk.report/internal/view"
)

var (
	file        = flag.String("rsk", "", "Recording to serve")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	configPath  = flag.String("config", "", "Optional JSON settings file")
	debug       = flag.Bool("debug", false, "Attach /debug routes (tailsql)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("rsk-view %s (%s)\n", version.Version, version.GitSHA)
		return
	}
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	var settings *config.Settings
	if *configPath != "" {
		var err error
		settings, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	addr := settings.GetListen()
	if *listen != "" {
		addr = *listen
	}

	r, err := rsk.Open(*file)
	if err != nil {
		log.Fatalf("failed to open recording: %v", err)
	}
	defer r.Close()

	srv := view.NewServer(r, view.WithChartMaxPoints(settings.GetChartMaxPoints()))
	mux := srv.ServeMux()
	if *debug {
		if err := srv.AttachDebugRoutes(mux); err != nil {
			log.Fatalf("failed to attach debug routes: %v", err)
		}
	}

	log.Printf("serving %s on %s", *file, addr)
	if err := http.ListenAndServe(addr, srv.WithRequestLog(mux)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
