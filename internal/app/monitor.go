package app

import (
	"encoding/json"
	"net/http"

	"github.com/deusflow/logistics-alert/internal/metrics"
)

// MonitorHandler serves /health and /metrics as JSON.
func MonitorHandler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !m.Healthy() {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.GetStats())
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
