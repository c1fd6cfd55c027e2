package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/validator"
)

type callbackRequest struct {
	CorrelationID string   `json:"correlation_id"`
	IsValid       *bool    `json:"is_valid"`
	Confidence    *float64 `json:"confidence"`
	Reason        string   `json:"reason"`
}

// ValidationCallback receives the validator's verdict and hands it to the
// resumer. The endpoint does no OCR work itself.
func (a *App) ValidationCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": domain.CodeBadCallback})
		return
	}
	if req.CorrelationID == "" || req.IsValid == nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": domain.CodeBadCallback})
		return
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		a.json(w, http.StatusBadRequest, map[string]string{"error": domain.CodeBadCallback})
		return
	}

	verdict := validator.Verdict{
		IsValid:    *req.IsValid,
		Confidence: req.Confidence,
		Reason:     req.Reason,
	}

	err := a.resumer.Resume(r.Context(), req.CorrelationID, verdict)
	switch {
	case err == nil:
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, domain.ErrStateNotFound):
		// Stale, expired, or duplicate delivery. Not an error for the caller.
		a.json(w, http.StatusNotFound, map[string]string{"error": "state_not_found"})
	default:
		a.logger.Error().Err(err).Str("correlation_id", req.CorrelationID).Msg("resume failed")
		a.json(w, http.StatusInternalServerError, map[string]string{"error": domain.CodeInternalError})
	}
}
