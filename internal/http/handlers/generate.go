package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"datasetgen/internal/domain"
	"datasetgen/internal/middleware"
)

type generateResponse struct {
	Status   string `json:"status"`
	Prompt   string `json:"prompt"`
	Image    string `json:"image"`
	RunID    string `json:"run_id,omitempty"`
	PromptID string `json:"prompt_id,omitempty"`
	Strategy string `json:"completion_strategy,omitempty"`
}

// GenerateDataset runs one request synchronously and answers once the engine
// confirmed completion.
func (a *App) GenerateDataset(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_request", "invalid payload")
		return
	}
	log := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("trigger", req.TriggerWord).
		Int("index", req.Index).
		Logger()
	log.Info().Msg("generate: request received")

	res, err := a.Runner.RunJob(r.Context(), req)
	if err != nil {
		status, code := classify(err)
		log.Error().Err(err).Int("status", status).Msg("generate: request failed")
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
		a.error(w, status, code, msg)
		return
	}
	a.json(w, http.StatusOK, generateResponse{
		Status:   "ok",
		Prompt:   res.PromptText,
		Image:    res.OutputArtifactName,
		RunID:    res.RunID,
		PromptID: res.PromptID,
		Strategy: string(res.Strategy),
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrSubmission):
		return http.StatusBadGateway, "submission_failed"
	case errors.Is(err, domain.ErrTracking):
		return http.StatusGatewayTimeout, "tracking_incomplete"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
