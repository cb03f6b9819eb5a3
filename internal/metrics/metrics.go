// Package metrics exposes Prometheus collectors for the matching engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons reported on CandidateRejections.
const (
	RejectExcludedState      = "excluded_state"
	RejectPickupUngeocodable = "pickup_ungeocodable"
	RejectDeadhead           = "deadhead"
	RejectDropoffUngeocoded  = "dropoff_ungeocodable"
	RejectCapacity           = "capacity"
	RejectUtilization        = "utilization"
	RejectProfit             = "profit"
	RejectScore              = "below_min_score"
)

// Geocode lookup tiers reported on GeocodeLookups.
const (
	TierMemory   = "memory"
	TierRedis    = "redis"
	TierProvider = "provider"
)

var (
	MatchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backhaul",
		Name:      "match_runs_total",
		Help:      "Matching runs by outcome.",
	}, []string{"outcome"})

	MatchRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "backhaul",
		Name:      "match_run_duration_seconds",
		Help:      "Wall time of findMatchingLoads.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	CandidatesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backhaul",
		Name:      "candidates_evaluated_total",
		Help:      "Marketplace loads run through the filter pipeline.",
	})

	CandidateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backhaul",
		Name:      "candidate_rejections_total",
		Help:      "Candidate loads rejected, by reason.",
	}, []string{"reason"})

	SuggestionsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "backhaul",
		Name:      "suggestions_saved_total",
		Help:      "Suggestion rows upserted.",
	})

	GeocodeLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backhaul",
		Name:      "geocode_lookups_total",
		Help:      "Geocode lookups answered, by tier and result.",
	}, []string{"tier", "result"})
)
