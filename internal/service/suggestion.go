package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/internal/repository"
)

// ─── SuggestionService ─────────────────────────────────────

// SuggestionService reads saved suggestions and records the user's decision
// on them.
type SuggestionService struct {
	store SuggestionStore
	log   *zap.Logger
	now   func() time.Time
}

// NewSuggestionService creates a suggestion service.
func NewSuggestionService(store SuggestionStore, log *zap.Logger) *SuggestionService {
	return &SuggestionService{
		store: store,
		log:   log.With(zap.String("component", "suggestion")),
		now:   time.Now,
	}
}

// ListActive returns the trip's unexpired suggestions, best first.
func (s *SuggestionService) ListActive(ctx context.Context, tripID string) ([]model.SuggestionRecord, error) {
	rows, err := s.store.ListActive(ctx, tripID, s.now())
	if err != nil {
		return nil, fmt.Errorf("suggestions: list %s: %w", tripID, err)
	}
	return rows, nil
}

// UpdateStatus moves a suggestion to accepted or dismissed.
//
// State transitions:
//   - pending   → accepted | dismissed
//   - accepted  → dismissed (the user changed their mind)
//   - dismissed → accepted
//
// Setting pending is rejected; only a matching run writes pending rows.
func (s *SuggestionService) UpdateStatus(ctx context.Context, id string, status model.SuggestionStatus) (*model.SuggestionRecord, error) {
	if status != model.SuggestionAccepted && status != model.SuggestionDismissed {
		return nil, ErrInvalidStatus
	}

	rec, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("suggestions: update %s: %w", id, err)
	}

	s.log.Info("suggestion status updated",
		zap.String("suggestion_id", id),
		zap.String("status", string(status)))
	return rec, nil
}
