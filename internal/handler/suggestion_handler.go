package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/internal/service"
)

// Suggestions reads and updates saved suggestions.
type Suggestions interface {
	ListActive(ctx context.Context, tripID string) ([]model.SuggestionRecord, error)
	UpdateStatus(ctx context.Context, id string, status model.SuggestionStatus) (*model.SuggestionRecord, error)
}

// StatusBody is the JSON body for POST /api/v1/suggestions/{id}/status.
type StatusBody struct {
	Status model.SuggestionStatus `json:"status"`
}

// SuggestionHandler serves the saved suggestion list and status updates.
type SuggestionHandler struct {
	svc Suggestions
	log *zap.Logger
}

// NewSuggestionHandler creates a new suggestion handler.
func NewSuggestionHandler(svc Suggestions, log *zap.Logger) *SuggestionHandler {
	return &SuggestionHandler{svc: svc, log: log.With(zap.String("component", "http"))}
}

// ListSuggestions handles GET /api/v1/trips/{trip_id}/suggestions
//
// Returns unexpired suggestions, highest match score first.
func (h *SuggestionHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["trip_id"]

	rows, err := h.svc.ListActive(r.Context(), tripID)
	if err != nil {
		h.log.Error("list suggestions failed", zap.String("trip_id", tripID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}
	if rows == nil {
		rows = []model.SuggestionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trip_id":     tripID,
		"count":       len(rows),
		"suggestions": rows,
	})
}

// UpdateStatus handles POST /api/v1/suggestions/{id}/status
//
//	{ "status": "accepted" }   or   { "status": "dismissed" }
func (h *SuggestionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body StatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	rec, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":   "invalid_status",
				"message": "status must be 'accepted' or 'dismissed'.",
			})
		case errors.Is(err, service.ErrSuggestionNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "not_found",
				"message": "Suggestion not found.",
			})
		default:
			h.log.Error("update suggestion failed", zap.String("suggestion_id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
