package server

import (
	"net/http"

	"docattach/internal/api"
	"docattach/internal/store"
)

type migrationReporter interface {
	MigrationPlan() (*store.MigrationStatus, error)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok"}
	if reporter, ok := s.store.(migrationReporter); ok {
		if plan, err := reporter.MigrationPlan(); err == nil {
			resp.SchemaVersion = plan.CurrentVersion
		} else {
			s.log().Warn("read schema version", "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
