package handlers

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
	Ledger string `json:"ledger"`
}

// Health reports liveness and whether the run ledger is wired.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Ledger: "disabled"}
	if a.Runs != nil {
		resp.Ledger = "enabled"
	}
	a.json(w, http.StatusOK, resp)
}
