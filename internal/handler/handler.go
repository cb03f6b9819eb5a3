// Package handler contains HTTP request handlers for the load matching API.
//
// Caller identity comes from the X-User-ID and X-Company-ID headers set by
// the API gateway in front of this service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/internal/service"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderCompanyID = "X-Company-ID"
)

// Matcher runs a full matching pass for a trip.
type Matcher interface {
	RunForTrip(ctx context.Context, tripID, userID string, prefs model.MatchingPreferences) (*service.RunResult, error)
}

// PreferencesBody overrides individual matching preferences for one run.
// Omitted fields keep the configured defaults.
type PreferencesBody struct {
	MinProfitPerMile      *float64  `json:"min_profit_per_mile"`
	MaxDeadheadMiles      *float64  `json:"max_deadhead_miles"`
	MinMatchScore         *int      `json:"min_match_score"`
	PreferredReturnStates *[]string `json:"preferred_return_states"`
	ExcludedStates        *[]string `json:"excluded_states"`
	MinCapacityUtil       *float64  `json:"min_capacity_utilization"`
	MaxCapacityUtil       *float64  `json:"max_capacity_utilization"`
}

// Apply returns p with every set field of b copied over.
func (b PreferencesBody) Apply(p model.MatchingPreferences) model.MatchingPreferences {
	if b.MinProfitPerMile != nil {
		p.MinProfitPerMile = *b.MinProfitPerMile
	}
	if b.MaxDeadheadMiles != nil {
		p.MaxDeadheadMiles = *b.MaxDeadheadMiles
	}
	if b.MinMatchScore != nil {
		p.MinMatchScore = *b.MinMatchScore
	}
	if b.PreferredReturnStates != nil {
		p.PreferredReturnStates = *b.PreferredReturnStates
	}
	if b.ExcludedStates != nil {
		p.ExcludedStates = *b.ExcludedStates
	}
	if b.MinCapacityUtil != nil {
		p.MinCapacityUtil = *b.MinCapacityUtil
	}
	if b.MaxCapacityUtil != nil {
		p.MaxCapacityUtil = *b.MaxCapacityUtil
	}
	return p
}

// MatchResponse is the body of a matching run.
type MatchResponse struct {
	Success     bool                     `json:"success"`
	Count       int                      `json:"count"`
	Suggestions []model.ScoredSuggestion `json:"suggestions,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// MatchHandler handles load matching HTTP requests.
type MatchHandler struct {
	matcher  Matcher
	defaults model.MatchingPreferences
	log      *zap.Logger
}

// NewMatchHandler creates a new handler wired to the matching service.
func NewMatchHandler(matcher Matcher, defaults model.MatchingPreferences, log *zap.Logger) *MatchHandler {
	return &MatchHandler{matcher: matcher, defaults: defaults, log: log.With(zap.String("component", "http"))}
}

// RunMatches handles POST /api/v1/trips/{trip_id}/matches
//
// The optional body overrides matching preferences:
//
//	{ "max_deadhead_miles": 100, "excluded_states": ["CA"] }
//
// A trip that cannot be loaded yields {success:true, count:0}. A failed save
// yields 500 with {success:false, error} carrying the storage message.
func (h *MatchHandler) RunMatches(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + HeaderUserID + " header"})
		return
	}
	tripID := mux.Vars(r)["trip_id"]

	var body PreferencesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	result, err := h.matcher.RunForTrip(r.Context(), tripID, userID, body.Apply(h.defaults))
	if err != nil {
		h.log.Error("match run failed", zap.String("trip_id", tripID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, MatchResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, MatchResponse{
		Success:     true,
		Count:       result.Count,
		Suggestions: result.Suggestions,
	})
}

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
