package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/repository"
	"github.com/shiva/backhaul/internal/service"
)

// VisibilityResolver answers capacity-visibility questions for a trip.
type VisibilityResolver interface {
	ResolveForTrip(ctx context.Context, tripID, requestingCompanyID string) (*service.VisibilityReport, error)
}

// VisibilityHandler exposes a trip's effective sharing policy.
type VisibilityHandler struct {
	resolver VisibilityResolver
	log      *zap.Logger
}

// NewVisibilityHandler creates a new visibility handler.
func NewVisibilityHandler(resolver VisibilityResolver, log *zap.Logger) *VisibilityHandler {
	return &VisibilityHandler{resolver: resolver, log: log.With(zap.String("component", "http"))}
}

// GetVisibility handles GET /api/v1/trips/{trip_id}/visibility?company_id=X
//
// The requesting company defaults to the caller's X-Company-ID.
func (h *VisibilityHandler) GetVisibility(w http.ResponseWriter, r *http.Request) {
	tripID := mux.Vars(r)["trip_id"]
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		companyID = r.Header.Get(HeaderCompanyID)
	}

	report, err := h.resolver.ResolveForTrip(r.Context(), tripID, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":   "not_found",
				"message": "Trip not found.",
			})
			return
		}
		h.log.Error("resolve visibility failed", zap.String("trip_id", tripID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, report)
}
