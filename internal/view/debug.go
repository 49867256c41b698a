package view

import (
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachDebugRoutes mounts a tailSQL instance over the open recording so
// the raw container tables can be queried live from the browser.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return err
	}
	tsql.SetDB("sqlite://"+s.rsk.Filename, s.rsk.DB(), &tailsql.DBOptions{
		Label: "RSK recording",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}
