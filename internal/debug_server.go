package internal

import (
	"broadcast-relay/observability"
	"encoding/json"
	"log/slog"
	"net/http"
)

// StatsProvider returns the number of connections currently registered.
type StatsProvider func() int

// NewStatsHandler serves the latest monitoring snapshot as JSON.
// The active connection count is read live rather than from the last sample.
func NewStatsHandler(log *slog.Logger, monitoring *observability.MonitoringManager, connections StatsProvider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		stats := monitoring.GetLatest()
		if connections != nil {
			stats.ActiveConnections = connections()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Error("Failed to encode stats", "error", err)
		}
	})
}
