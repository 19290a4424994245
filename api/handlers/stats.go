package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lifeline-response/lifeline-api/api"
	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/dispatch"
)

// Stats exposes the aggregate snapshot endpoint.
type Stats struct {
	Engine *dispatch.Engine
}

// StatsHandler returns report counts by status and severity, roster counts
// and live connection counts.
func (s Stats) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	stats, err := s.Engine.Stats(ctx)
	if err != nil {
		config.ErrorStatus("failed to collect stats", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(stats)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
