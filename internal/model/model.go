// Package model contains domain models for the load matching engine.
// Record structs mirror the columns the engine reads from the hosted
// backend; ScoredSuggestion is what it writes back.
package model

import "time"

// ─── Enums ──────────────────────────────────────────────────

// SuggestionType labels why a candidate load was suggested.
type SuggestionType string

const (
	SuggestionNearDelivery SuggestionType = "near_delivery"
	SuggestionBackhaul     SuggestionType = "backhaul"
	SuggestionCapacityFit  SuggestionType = "capacity_fit"
	SuggestionHighProfit   SuggestionType = "high_profit"
	SuggestionPartnerLoad  SuggestionType = "partner_load"
)

// SuggestionStatus is the lifecycle state of a persisted suggestion row.
type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "pending"
	SuggestionAccepted  SuggestionStatus = "accepted"
	SuggestionDismissed SuggestionStatus = "dismissed"
)

// CapacityVisibility controls who may see a trip's spare capacity.
type CapacityVisibility string

const (
	VisibilityPrivate      CapacityVisibility = "private"
	VisibilityPartnersOnly CapacityVisibility = "partners_only"
	VisibilityPublic       CapacityVisibility = "public"
)

// Valid reports whether v is one of the known visibility levels.
func (v CapacityVisibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPartnersOnly, VisibilityPublic:
		return true
	}
	return false
}

// PayMode is the raw pay_mode column value of a driver.
type PayMode string

const (
	PayPerMile          PayMode = "per_mile"
	PayPerCuft          PayMode = "per_cuft"
	PayPerMileAndCuft   PayMode = "per_mile_and_cuft"
	PayPercentOfRevenue PayMode = "percent_of_revenue"
	PayFlatDailyRate    PayMode = "flat_daily_rate"
)

// ─── Location ───────────────────────────────────────────────

// Coordinates is a WGS-84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is the city/state/postal-code triple used for geocoding.
type Address struct {
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// CurrentLocation is a live GPS fix for a trip.
type CurrentLocation struct {
	Coordinates
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// DeliveryDestination is one drop on the trip, in delivery order.
type DeliveryDestination struct {
	Address
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	LoadID       string     `json:"load_id"`
}

// ─── Storage records ────────────────────────────────────────

// Trip maps to the `trips` columns read by the engine.
type Trip struct {
	ID                    string
	OwnerID               string
	CompanyID             string
	DriverID              *string
	TrailerID             *string
	Origin                Address
	Destination           Address
	CurrentLat            *float64
	CurrentLng            *float64
	CurrentCity           *string
	CurrentState          *string
	RemainingCapacityCuft *float64
	ReturnRoutePreference []string
	ShareLocation         *bool
	ShareCapacity         *bool
	CapacityVisibility    *CapacityVisibility
}

// DriverPayConfig is the driver's pay mode plus the rate fields that apply.
type DriverPayConfig struct {
	PayMode          *PayMode `json:"pay_mode"`
	RatePerMile      *float64 `json:"rate_per_mile,omitempty"`
	RatePerCuft      *float64 `json:"rate_per_cuft,omitempty"`
	PercentOfRevenue *float64 `json:"percent_of_revenue,omitempty"`
	FlatDailyRate    *float64 `json:"flat_daily_rate,omitempty"`
}

// Driver maps to the `drivers` columns read by the engine.
type Driver struct {
	ID                     string
	CompanyID              string
	Pay                    DriverPayConfig
	LocationSharingEnabled *bool
	AutoPostCapacity       *bool
	CapacityVisibility     *CapacityVisibility
}

// Trailer maps to the `trailers` columns read by the engine.
type Trailer struct {
	ID            string
	CubicCapacity *float64
}

// TripLoad is a load attached to a trip through `trip_loads`.
type TripLoad struct {
	LoadID           string
	Delivery         Address
	DeliveryDate     *time.Time
	CubicFeet        *float64
	ActualCuftLoaded *float64
}

// CompanySettings holds company-level defaults for visibility resolution.
type CompanySettings struct {
	CompanyID                 string
	DefaultLocationSharing    *bool
	DefaultCapacityVisibility *CapacityVisibility
}

// MarketplaceLoad is a posted, unassigned load that may be matched.
type MarketplaceLoad struct {
	ID                string
	OwnerID           string
	CompanyID         *string
	PostedByCompanyID *string
	Pickup            Address
	Delivery          Address
	PickupDate        *time.Time
	CubicFeet         *float64
	TotalRate         *float64
	RatePerCuft       *float64
	BalanceDue        *float64
}

// PostingCompanyID returns the company that posted the load, falling back to
// the owning company.
func (l MarketplaceLoad) PostingCompanyID() string {
	if l.PostedByCompanyID != nil {
		return *l.PostedByCompanyID
	}
	if l.CompanyID != nil {
		return *l.CompanyID
	}
	return ""
}

// ─── Matching ───────────────────────────────────────────────

// TripMatchingContext is built per matching run; it is never persisted.
type TripMatchingContext struct {
	TripID                string                `json:"trip_id"`
	DriverID              string                `json:"driver_id"`
	CompanyID             string                `json:"company_id"`
	OwnerID               string                `json:"owner_id"`
	CurrentLocation       *CurrentLocation      `json:"current_location,omitempty"`
	HomeBase              Address               `json:"home_base"`
	DeliveryDestinations  []DeliveryDestination `json:"delivery_destinations"`
	TrailerCapacityCuft   float64               `json:"trailer_capacity_cuft"`
	RemainingCapacityCuft float64               `json:"remaining_capacity_cuft"`
	DriverPayConfig       DriverPayConfig       `json:"driver_pay_config"`
	ReturnRoutePreference []string              `json:"return_route_preference"`
}

// FinalDelivery returns the last delivery on the trip, the reference point
// for matching.
func (c *TripMatchingContext) FinalDelivery() (DeliveryDestination, bool) {
	if c == nil || len(c.DeliveryDestinations) == 0 {
		return DeliveryDestination{}, false
	}
	return c.DeliveryDestinations[len(c.DeliveryDestinations)-1], true
}

// MatchingPreferences are the per-run tunables.
type MatchingPreferences struct {
	MinProfitPerMile      float64  `json:"min_profit_per_mile"`
	MaxDeadheadMiles      float64  `json:"max_deadhead_miles"`
	MinMatchScore         int      `json:"min_match_score"`
	PreferredReturnStates []string `json:"preferred_return_states"`
	ExcludedStates        []string `json:"excluded_states"`
	MinCapacityUtil       float64  `json:"min_capacity_utilization"`
	MaxCapacityUtil       float64  `json:"max_capacity_utilization"`
}

// DefaultMatchingPreferences returns the engine defaults.
func DefaultMatchingPreferences() MatchingPreferences {
	return MatchingPreferences{
		MinProfitPerMile: 1.0,
		MaxDeadheadMiles: 150,
		MinMatchScore:    50,
		MinCapacityUtil:  30,
		MaxCapacityUtil:  100,
	}
}

// ScoreBreakdown holds the five weighted sub-scores.
type ScoreBreakdown struct {
	Proximity int `json:"proximity_score"`
	Profit    int `json:"profit_score"`
	Capacity  int `json:"capacity_score"`
	Route     int `json:"route_score"`
	Partner   int `json:"partner_score"`
}

// Total returns the match score.
func (b ScoreBreakdown) Total() int {
	return b.Proximity + b.Profit + b.Capacity + b.Route + b.Partner
}

// ScoredSuggestion is one accepted candidate load.
type ScoredSuggestion struct {
	LoadID         string         `json:"load_id"`
	LoadCompanyID  string         `json:"load_company_id,omitempty"`
	SuggestionType SuggestionType `json:"suggestion_type"`

	PickupCity   string  `json:"pickup_city"`
	PickupState  string  `json:"pickup_state"`
	DropoffCity  string  `json:"dropoff_city"`
	DropoffState string  `json:"dropoff_state"`
	CubicFeet    float64 `json:"cubic_feet"`

	DistanceToPickupMiles float64  `json:"distance_to_pickup_miles"`
	LoadMiles             float64  `json:"load_miles"`
	TotalMiles            float64  `json:"total_miles"`
	DetourMiles           *float64 `json:"detour_miles,omitempty"`

	RevenueEstimate    float64 `json:"revenue_estimate"`
	DriverCostEstimate float64 `json:"driver_cost_estimate"`
	FuelCostEstimate   float64 `json:"fuel_cost_estimate"`
	ProfitEstimate     float64 `json:"profit_estimate"`
	ProfitPerMile      float64 `json:"profit_per_mile"`
	ProfitMargin       float64 `json:"profit_margin"`
	EstimatedDays      int     `json:"estimated_days"`

	CapacityFitPercent float64 `json:"capacity_fit_percent"`

	MatchScore     int            `json:"match_score"`
	ScoreBreakdown ScoreBreakdown `json:"score_breakdown"`
}

// SuggestionRecord is a persisted suggestion row.
type SuggestionRecord struct {
	ID        string           `json:"id"`
	TripID    string           `json:"trip_id"`
	CompanyID string           `json:"company_id"`
	DriverID  string           `json:"driver_id"`
	OwnerID   string           `json:"owner_id"`
	Status    SuggestionStatus `json:"status"`
	ExpiresAt time.Time        `json:"expires_at"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	ScoredSuggestion
}

// EffectiveVisibility is the resolved sharing policy for a trip.
type EffectiveVisibility struct {
	ShareLocation      bool               `json:"share_location"`
	ShareCapacity      bool               `json:"share_capacity"`
	CapacityVisibility CapacityVisibility `json:"capacity_visibility"`
}
