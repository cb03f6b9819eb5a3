package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
)

func seededSuggestions() *fakeSuggestions {
	store := newFakeSuggestions()
	store.rows["t1/fresh"] = model.SuggestionRecord{
		ID: "s1", TripID: "t1", Status: model.SuggestionPending,
		ExpiresAt:        fixedNow.Add(time.Hour),
		ScoredSuggestion: model.ScoredSuggestion{LoadID: "fresh"},
	}
	store.rows["t1/stale"] = model.SuggestionRecord{
		ID: "s2", TripID: "t1", Status: model.SuggestionPending,
		ExpiresAt:        fixedNow.Add(-time.Minute),
		ScoredSuggestion: model.ScoredSuggestion{LoadID: "stale"},
	}
	return store
}

func TestSuggestionService_ListActiveHidesExpired(t *testing.T) {
	svc := NewSuggestionService(seededSuggestions(), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	rows, err := svc.ListActive(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "fresh", rows[0].LoadID)
}

func TestSuggestionService_UpdateStatus(t *testing.T) {
	store := seededSuggestions()
	svc := NewSuggestionService(store, zap.NewNop())

	rec, err := svc.UpdateStatus(context.Background(), "s1", model.SuggestionAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionAccepted, rec.Status)
	assert.Equal(t, model.SuggestionAccepted, store.rows["t1/fresh"].Status)

	rec, err = svc.UpdateStatus(context.Background(), "s1", model.SuggestionDismissed)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionDismissed, rec.Status)
}

func TestSuggestionService_UpdateStatusErrors(t *testing.T) {
	svc := NewSuggestionService(seededSuggestions(), zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "s1", model.SuggestionPending)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), "s1", "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), "missing", model.SuggestionAccepted)
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}
