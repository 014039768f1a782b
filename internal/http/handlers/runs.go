package handlers

import (
	"net/http"
	"strconv"
)

const defaultRunsLimit = 50

// ListRuns returns the most recent ledger entries.
func (a *App) ListRuns(w http.ResponseWriter, r *http.Request) {
	if a.Runs == nil {
		a.error(w, http.StatusServiceUnavailable, "ledger_unavailable", "run ledger is not configured")
		return
	}
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.error(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := a.Runs.ListRecent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("runs: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load runs")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": runs})
}
