// Package service contains the core business logic of the load matching
// engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shiva/backhaul/internal/metrics"
	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/pkg/geo"
)

// ─── Errors ─────────────────────────────────────────────────

var (
	ErrSaveFailed         = errors.New("failed to save suggestions")
	ErrSuggestionNotFound = errors.New("suggestion not found")
	ErrInvalidStatus      = errors.New("invalid suggestion status")
)

// ─── Constants ──────────────────────────────────────────────

const (
	// DefaultMaxResults caps the ranked suggestion list.
	DefaultMaxResults = 20

	// DefaultSuggestionTTL is how long a saved suggestion stays fresh.
	DefaultSuggestionTTL = 24 * time.Hour

	// DefaultWorkers bounds concurrent candidate scoring.
	DefaultWorkers = 8
)

// ─── Collaborators ──────────────────────────────────────────

// TripStore reads the trip-side records a matching context is built from.
type TripStore interface {
	GetTripForOwner(ctx context.Context, tripID, ownerID string) (*model.Trip, error)
	GetDriver(ctx context.Context, driverID string) (*model.Driver, error)
	GetTrailer(ctx context.Context, trailerID string) (*model.Trailer, error)
	// ListTripLoads returns attached loads in delivery order.
	ListTripLoads(ctx context.Context, tripID string) ([]model.TripLoad, error)
}

// LoadStore queries the marketplace.
type LoadStore interface {
	// ListPostedLoads returns posted, unassigned loads not owned by
	// excludeOwnerID with a pickup date on or after pickupFrom, ordered by
	// pickup date then id.
	ListPostedLoads(ctx context.Context, excludeOwnerID string, pickupFrom time.Time) ([]model.MarketplaceLoad, error)
}

// PartnerStore lists a company's active partners.
type PartnerStore interface {
	ListActivePartnerIDs(ctx context.Context, companyID string) ([]string, error)
}

// SuggestionStore persists suggestion rows.
type SuggestionStore interface {
	// UpsertSuggestions writes all rows atomically, keyed by (trip_id, load_id).
	UpsertSuggestions(ctx context.Context, rows []model.SuggestionRecord) (int, error)
	ListActive(ctx context.Context, tripID string, now time.Time) ([]model.SuggestionRecord, error)
	UpdateStatus(ctx context.Context, id string, status model.SuggestionStatus) (*model.SuggestionRecord, error)
}

// GeoResolver is the best-effort geographic collaborator.
type GeoResolver interface {
	Geocode(ctx context.Context, addr model.Address) (model.Coordinates, bool)
	Distance(a, b model.Coordinates) float64
	AddedMiles(start, end, via model.Coordinates) float64
}

// MatchingOptions tunes a MatchingService. Zero values take defaults.
type MatchingOptions struct {
	SuggestionTTL time.Duration
	MaxResults    int
	Workers       int
}

// ─── MatchingService ────────────────────────────────────────

// MatchingService finds profitable backhaul loads for a trip.
//
// A run is stateless: BuildMatchingContext reads the trip, FindMatchingLoads
// filters and scores marketplace candidates against the trip's final delivery,
// and SaveSuggestions upserts the ranked result in one batch. Storage and
// geocoding failures degrade to fewer (or no) suggestions; only persistence
// reports an error.
type MatchingService struct {
	trips       TripStore
	loads       LoadStore
	partners    PartnerStore
	suggestions SuggestionStore
	geo         GeoResolver
	costs       CostEstimator
	opts        MatchingOptions
	log         *zap.Logger
	now         func() time.Time
}

// NewMatchingService creates a matching service.
func NewMatchingService(
	trips TripStore,
	loads LoadStore,
	partners PartnerStore,
	suggestions SuggestionStore,
	resolver GeoResolver,
	costs CostEstimator,
	opts MatchingOptions,
	log *zap.Logger,
) *MatchingService {
	if opts.SuggestionTTL <= 0 {
		opts.SuggestionTTL = DefaultSuggestionTTL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &MatchingService{
		trips:       trips,
		loads:       loads,
		partners:    partners,
		suggestions: suggestions,
		geo:         resolver,
		costs:       costs,
		opts:        opts,
		log:         log.With(zap.String("component", "match")),
		now:         time.Now,
	}
}

// ─── Context ────────────────────────────────────────────────

// BuildMatchingContext assembles the per-run view of a trip owned by userID.
// It returns nil when the trip cannot be loaded; that means "nothing to
// match", not an error.
func (s *MatchingService) BuildMatchingContext(ctx context.Context, tripID, userID string) *model.TripMatchingContext {
	trip, err := s.trips.GetTripForOwner(ctx, tripID, userID)
	if err != nil || trip == nil {
		s.log.Warn("trip lookup failed", zap.String("trip_id", tripID), zap.Error(err))
		return nil
	}

	mctx := &model.TripMatchingContext{
		TripID:                trip.ID,
		CompanyID:             trip.CompanyID,
		OwnerID:               trip.OwnerID,
		HomeBase:              trip.Origin,
		ReturnRoutePreference: trip.ReturnRoutePreference,
	}

	if trip.CurrentLat != nil && trip.CurrentLng != nil {
		loc := &model.CurrentLocation{Coordinates: model.Coordinates{Lat: *trip.CurrentLat, Lng: *trip.CurrentLng}}
		if trip.CurrentCity != nil {
			loc.City = *trip.CurrentCity
		}
		if trip.CurrentState != nil {
			loc.State = *trip.CurrentState
		}
		mctx.CurrentLocation = loc
	}

	if trip.DriverID != nil {
		mctx.DriverID = *trip.DriverID
		driver, err := s.trips.GetDriver(ctx, *trip.DriverID)
		if err != nil {
			// Unknown pay config prices with the fallback rate.
			s.log.Warn("driver lookup failed", zap.String("trip_id", tripID), zap.Error(err))
		} else if driver != nil {
			mctx.DriverPayConfig = driver.Pay
		}
	}

	if trip.TrailerID != nil {
		trailer, err := s.trips.GetTrailer(ctx, *trip.TrailerID)
		if err != nil {
			s.log.Warn("trailer lookup failed", zap.String("trip_id", tripID), zap.Error(err))
		} else if trailer != nil {
			mctx.TrailerCapacityCuft = deref(trailer.CubicCapacity)
		}
	}

	loads, err := s.trips.ListTripLoads(ctx, tripID)
	if err != nil {
		s.log.Warn("trip loads lookup failed", zap.String("trip_id", tripID), zap.Error(err))
		loads = nil
	}

	mctx.RemainingCapacityCuft = remainingCapacity(mctx.TrailerCapacityCuft, trip.RemainingCapacityCuft, loads)
	if mctx.TrailerCapacityCuft < mctx.RemainingCapacityCuft {
		// Trailer unknown: the override is the only capacity bound we have.
		mctx.TrailerCapacityCuft = mctx.RemainingCapacityCuft
	}

	mctx.DeliveryDestinations = deliveryDestinations(trip, loads)
	return mctx
}

// remainingCapacity prefers the trip-level override, otherwise subtracts the
// loaded volume (actual when recorded, else booked) from the trailer. The
// result is never negative and never above a known trailer capacity.
func remainingCapacity(trailerCuft float64, override *float64, loads []model.TripLoad) float64 {
	var remaining float64
	if override != nil {
		remaining = *override
		if trailerCuft > 0 {
			remaining = min(remaining, trailerCuft)
		}
	} else {
		used := 0.0
		for _, l := range loads {
			if l.ActualCuftLoaded != nil {
				used += *l.ActualCuftLoaded
			} else {
				used += deref(l.CubicFeet)
			}
		}
		remaining = trailerCuft - used
	}
	return max(0, remaining)
}

// deliveryDestinations lists the trip's drops in order. A trip with no
// attached loads uses its own destination as the single drop.
func deliveryDestinations(trip *model.Trip, loads []model.TripLoad) []model.DeliveryDestination {
	dests := make([]model.DeliveryDestination, 0, len(loads))
	for _, l := range loads {
		dests = append(dests, model.DeliveryDestination{
			Address:      l.Delivery,
			ExpectedDate: l.DeliveryDate,
			LoadID:       l.LoadID,
		})
	}
	if len(dests) == 0 && (trip.Destination.City != "" || trip.Destination.Zip != "") {
		dests = append(dests, model.DeliveryDestination{Address: trip.Destination})
	}
	return dests
}

// ─── Matching ───────────────────────────────────────────────

// FindMatchingLoads returns the best candidates for mctx, sorted by match
// score descending and capped at MaxResults. Ties keep marketplace order.
// An empty result means there is nothing to match against yet.
func (s *MatchingService) FindMatchingLoads(ctx context.Context, mctx *model.TripMatchingContext, prefs model.MatchingPreferences) []model.ScoredSuggestion {
	start := time.Now()
	defer func() { metrics.MatchRunDuration.Observe(time.Since(start).Seconds()) }()

	final, ok := mctx.FinalDelivery()
	if !ok {
		s.log.Debug("no delivery destination", zap.String("trip_id", mctx.TripID))
		return []model.ScoredSuggestion{}
	}
	deliveryCoords, ok := s.geo.Geocode(ctx, final.Address)
	if !ok {
		s.log.Warn("final delivery not geocodable",
			zap.String("trip_id", mctx.TripID),
			zap.String("city", final.City),
			zap.String("state", final.State))
		return []model.ScoredSuggestion{}
	}

	loads, err := s.loads.ListPostedLoads(ctx, mctx.OwnerID, startOfDay(s.now()))
	if err != nil {
		s.log.Warn("marketplace query failed", zap.String("trip_id", mctx.TripID), zap.Error(err))
		return []model.ScoredSuggestion{}
	}

	var partnerIDs []string
	if mctx.CompanyID != "" {
		partnerIDs, err = s.partners.ListActivePartnerIDs(ctx, mctx.CompanyID)
		if err != nil {
			s.log.Warn("partnership query failed", zap.String("company_id", mctx.CompanyID), zap.Error(err))
			partnerIDs = nil
		}
	}

	var homeCoords *model.Coordinates
	if c, ok := s.geo.Geocode(ctx, mctx.HomeBase); ok {
		homeCoords = &c
	}

	s.log.Debug("scoring candidates",
		zap.String("trip_id", mctx.TripID),
		zap.Int("candidates", len(loads)),
		zap.Int("partners", len(partnerIDs)))

	// Each worker writes only its own slot.
	results := make([]*model.ScoredSuggestion, len(loads))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range loads {
		i := i
		g.Go(func() error {
			sug, reason := s.scoreLoad(ctx, loads[i], mctx, prefs, deliveryCoords, homeCoords, partnerIDs)
			metrics.CandidatesEvaluated.Inc()
			if sug == nil {
				metrics.CandidateRejections.WithLabelValues(reason).Inc()
				s.log.Debug("candidate rejected",
					zap.String("load_id", loads[i].ID),
					zap.String("reason", reason))
				return nil
			}
			results[i] = sug
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.ScoredSuggestion, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	if len(out) > s.opts.MaxResults {
		out = out[:s.opts.MaxResults]
	}
	return out
}

// ScoreLoadForTrip runs one candidate through the filter pipeline. It
// returns nil when any gate rejects the load.
func (s *MatchingService) ScoreLoadForTrip(
	ctx context.Context,
	load model.MarketplaceLoad,
	mctx *model.TripMatchingContext,
	prefs model.MatchingPreferences,
	deliveryCoords model.Coordinates,
	partnerIDs []string,
) *model.ScoredSuggestion {
	var homeCoords *model.Coordinates
	if c, ok := s.geo.Geocode(ctx, mctx.HomeBase); ok {
		homeCoords = &c
	}
	sug, _ := s.scoreLoad(ctx, load, mctx, prefs, deliveryCoords, homeCoords, partnerIDs)
	return sug
}

// scoreLoad returns the scored suggestion, or nil and the rejection reason.
// Gates and sub-scores read the unrounded values; only the stored fields
// are rounded.
func (s *MatchingService) scoreLoad(
	ctx context.Context,
	load model.MarketplaceLoad,
	mctx *model.TripMatchingContext,
	prefs model.MatchingPreferences,
	deliveryCoords model.Coordinates,
	homeCoords *model.Coordinates,
	partnerIDs []string,
) (*model.ScoredSuggestion, string) {
	if containsState(prefs.ExcludedStates, load.Pickup.State) || containsState(prefs.ExcludedStates, load.Delivery.State) {
		return nil, metrics.RejectExcludedState
	}

	pickup, ok := s.geo.Geocode(ctx, load.Pickup)
	if !ok {
		return nil, metrics.RejectPickupUngeocodable
	}
	deadhead := s.geo.Distance(deliveryCoords, pickup)
	if deadhead > prefs.MaxDeadheadMiles {
		return nil, metrics.RejectDeadhead
	}

	dropoff, ok := s.geo.Geocode(ctx, load.Delivery)
	if !ok {
		return nil, metrics.RejectDropoffUngeocoded
	}
	loadMiles := s.geo.Distance(pickup, dropoff)
	totalMiles := deadhead + loadMiles

	cubicFeet := deref(load.CubicFeet)
	if mctx.RemainingCapacityCuft <= 0 || cubicFeet > mctx.RemainingCapacityCuft {
		return nil, metrics.RejectCapacity
	}
	fit := cubicFeet / mctx.RemainingCapacityCuft * 100
	if fit < prefs.MinCapacityUtil || fit > prefs.MaxCapacityUtil {
		return nil, metrics.RejectUtilization
	}

	revenue := money(loadRevenue(load, cubicFeet))
	days := s.costs.EstimateDays(totalMiles)
	costs := s.costs.Estimate(mctx.DriverPayConfig, totalMiles, cubicFeet, revenue, days)

	profit := money(revenue - costs.TotalCost)
	perMile := 0.0
	if totalMiles > 0 {
		perMile = profit / totalMiles
	}
	if perMile < prefs.MinProfitPerMile {
		return nil, metrics.RejectProfit
	}

	loadCompanyID := load.PostingCompanyID()
	breakdown := Score(ScoreInput{
		DistanceToPickup:      deadhead,
		ProfitPerMile:         perMile,
		CapacityFitPercent:    fit,
		DropoffState:          load.Delivery.State,
		ReturnRoutePreference: mctx.ReturnRoutePreference,
		PreferredReturnStates: prefs.PreferredReturnStates,
		LoadCompanyID:         loadCompanyID,
		PartnerCompanyIDs:     partnerIDs,
	})
	score := breakdown.Total()
	if score < prefs.MinMatchScore {
		return nil, metrics.RejectScore
	}

	sug := &model.ScoredSuggestion{
		LoadID:                load.ID,
		LoadCompanyID:         loadCompanyID,
		SuggestionType:        DetermineSuggestionType(breakdown),
		PickupCity:            load.Pickup.City,
		PickupState:           load.Pickup.State,
		DropoffCity:           load.Delivery.City,
		DropoffState:          load.Delivery.State,
		CubicFeet:             cubicFeet,
		DistanceToPickupMiles: geo.Round(deadhead, 1),
		LoadMiles:             geo.Round(loadMiles, 1),
		TotalMiles:            geo.Round(totalMiles, 1),
		RevenueEstimate:       revenue,
		DriverCostEstimate:    costs.DriverCost,
		FuelCostEstimate:      costs.FuelCost,
		ProfitEstimate:        profit,
		ProfitPerMile:         geo.Round(perMile, 4),
		ProfitMargin:          CalculateProfitMargin(revenue, costs.TotalCost),
		EstimatedDays:         days,
		CapacityFitPercent:    geo.Round(fit, 2),
		MatchScore:            score,
		ScoreBreakdown:        breakdown,
	}
	if homeCoords != nil {
		detour := geo.Round(s.geo.AddedMiles(deliveryCoords, *homeCoords, pickup), 1)
		sug.DetourMiles = &detour
	}
	return sug, ""
}

// loadRevenue is total_rate, else balance_due, else cubic feet × rate per cuft.
func loadRevenue(load model.MarketplaceLoad, cubicFeet float64) float64 {
	if load.TotalRate != nil {
		return *load.TotalRate
	}
	if load.BalanceDue != nil {
		return *load.BalanceDue
	}
	return cubicFeet * deref(load.RatePerCuft)
}

// ─── Persistence ────────────────────────────────────────────

// SaveSuggestions upserts the suggestions as pending rows expiring after the
// configured TTL. An empty list is a successful no-op.
func (s *MatchingService) SaveSuggestions(
	ctx context.Context,
	tripID, companyID, driverID, ownerID string,
	suggestions []model.ScoredSuggestion,
) (int, error) {
	if len(suggestions) == 0 {
		return 0, nil
	}

	now := s.now()
	expires := now.Add(s.opts.SuggestionTTL)
	rows := make([]model.SuggestionRecord, len(suggestions))
	for i, sug := range suggestions {
		rows[i] = model.SuggestionRecord{
			TripID:           tripID,
			CompanyID:        companyID,
			DriverID:         driverID,
			OwnerID:          ownerID,
			Status:           model.SuggestionPending,
			ExpiresAt:        expires,
			CreatedAt:        now,
			UpdatedAt:        now,
			ScoredSuggestion: sug,
		}
	}

	n, err := s.suggestions.UpsertSuggestions(ctx, rows)
	if err != nil {
		s.log.Error("suggestion upsert failed", zap.String("trip_id", tripID), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	metrics.SuggestionsSaved.Add(float64(n))
	return n, nil
}

// RunResult is the outcome of one RunForTrip call.
type RunResult struct {
	Count       int                      `json:"count"`
	Suggestions []model.ScoredSuggestion `json:"suggestions"`
}

// RunForTrip builds the context, finds matches and saves them.
func (s *MatchingService) RunForTrip(ctx context.Context, tripID, userID string, prefs model.MatchingPreferences) (*RunResult, error) {
	mctx := s.BuildMatchingContext(ctx, tripID, userID)
	if mctx == nil {
		metrics.MatchRuns.WithLabelValues("no_context").Inc()
		return &RunResult{Suggestions: []model.ScoredSuggestion{}}, nil
	}

	suggestions := s.FindMatchingLoads(ctx, mctx, prefs)
	n, err := s.SaveSuggestions(ctx, mctx.TripID, mctx.CompanyID, mctx.DriverID, mctx.OwnerID, suggestions)
	if err != nil {
		metrics.MatchRuns.WithLabelValues("save_failed").Inc()
		return nil, err
	}

	outcome := "matched"
	if n == 0 {
		outcome = "empty"
	}
	metrics.MatchRuns.WithLabelValues(outcome).Inc()
	s.log.Info("match run complete",
		zap.String("trip_id", mctx.TripID),
		zap.Int("suggestions", n))

	return &RunResult{Count: n, Suggestions: suggestions}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
