package service

import (
	"slices"
	"strings"

	"github.com/shiva/backhaul/internal/model"
)

// ─── Sub-score Bounds ───────────────────────────────────────

const (
	MaxProximityScore = 25
	MaxProfitScore    = 25
	MaxCapacityScore  = 20
	MaxRouteScore     = 20
	MaxPartnerScore   = 10
)

// ScoreInput is the metric set one candidate is scored on.
type ScoreInput struct {
	DistanceToPickup      float64
	ProfitPerMile         float64
	CapacityFitPercent    float64
	DropoffState          string
	ReturnRoutePreference []string
	PreferredReturnStates []string
	LoadCompanyID         string
	PartnerCompanyIDs     []string
}

// Score computes the five step-function sub-scores. The total is in [5, 100].
func Score(in ScoreInput) model.ScoreBreakdown {
	return model.ScoreBreakdown{
		Proximity: proximityScore(in.DistanceToPickup),
		Profit:    profitScore(in.ProfitPerMile),
		Capacity:  capacityScore(in.CapacityFitPercent),
		Route:     routeScore(in.DropoffState, in.ReturnRoutePreference, in.PreferredReturnStates),
		Partner:   partnerScore(in.LoadCompanyID, in.PartnerCompanyIDs),
	}
}

func proximityScore(miles float64) int {
	switch {
	case miles <= 25:
		return 25
	case miles <= 50:
		return 20
	case miles <= 75:
		return 15
	case miles <= 100:
		return 10
	default:
		return 5
	}
}

func profitScore(perMile float64) int {
	switch {
	case perMile >= 2.5:
		return 25
	case perMile >= 2.0:
		return 20
	case perMile >= 1.5:
		return 15
	case perMile >= 1.25:
		return 10
	default:
		return 5
	}
}

func capacityScore(fitPercent float64) int {
	switch {
	case fitPercent >= 60 && fitPercent <= 90:
		return 20
	case fitPercent >= 40 && fitPercent <= 95:
		return 15
	default:
		return 10
	}
}

func routeScore(dropoffState string, returnRoute, preferred []string) int {
	switch {
	case containsState(returnRoute, dropoffState):
		return 20
	case containsState(preferred, dropoffState):
		return 15
	default:
		return 5
	}
}

func partnerScore(loadCompanyID string, partnerIDs []string) int {
	if loadCompanyID != "" && slices.Contains(partnerIDs, loadCompanyID) {
		return MaxPartnerScore
	}
	return 0
}

// DetermineSuggestionType labels a scored candidate. The first matching rule
// wins: partner, high profit, backhaul, capacity fit, near delivery.
func DetermineSuggestionType(b model.ScoreBreakdown) model.SuggestionType {
	switch {
	case b.Partner > 0:
		return model.SuggestionPartnerLoad
	case b.Profit >= 20:
		return model.SuggestionHighProfit
	case b.Route >= 15:
		return model.SuggestionBackhaul
	case b.Capacity >= 18:
		return model.SuggestionCapacityFit
	default:
		return model.SuggestionNearDelivery
	}
}

// containsState compares state codes case-insensitively.
func containsState(states []string, state string) bool {
	if state == "" {
		return false
	}
	return slices.ContainsFunc(states, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), state)
	})
}
