package service

import (
	"math"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/pkg/geo"
)

// ─── Cost Defaults ──────────────────────────────────────────

const (
	// DefaultFuelCostPerMile is the fuel estimate when the caller sets none.
	DefaultFuelCostPerMile = 0.50

	// DefaultAvgMilesPerDay converts trip miles into driving days.
	DefaultAvgMilesPerDay = 500.0

	// FallbackRatePerMile prices drivers whose pay mode is unknown or unset.
	FallbackRatePerMile = 0.50
)

// ─── Pay Plans ──────────────────────────────────────────────

// PayPlan is the closed set of driver pay modes. Every implementation is
// listed in EstimateCosts; UnknownPlan carries the conservative fallback.
type PayPlan interface {
	Mode() string
}

type PerMilePlan struct{ RatePerMile float64 }
type PerCuftPlan struct{ RatePerCuft float64 }
type PerMileAndCuftPlan struct{ RatePerMile, RatePerCuft float64 }
type PercentOfRevenuePlan struct{ Percent float64 }
type FlatDailyPlan struct{ DailyRate float64 }

// UnknownPlan is used for a missing or unrecognized pay_mode.
type UnknownPlan struct{ RawMode string }

func (PerMilePlan) Mode() string          { return string(model.PayPerMile) }
func (PerCuftPlan) Mode() string          { return string(model.PayPerCuft) }
func (PerMileAndCuftPlan) Mode() string   { return string(model.PayPerMileAndCuft) }
func (PercentOfRevenuePlan) Mode() string { return string(model.PayPercentOfRevenue) }
func (FlatDailyPlan) Mode() string        { return string(model.PayFlatDailyRate) }
func (UnknownPlan) Mode() string          { return "unknown" }

// PayPlanFor converts a stored pay config into a PayPlan. Missing rate
// fields count as zero.
func PayPlanFor(cfg model.DriverPayConfig) PayPlan {
	if cfg.PayMode == nil {
		return UnknownPlan{}
	}
	switch *cfg.PayMode {
	case model.PayPerMile:
		return PerMilePlan{RatePerMile: deref(cfg.RatePerMile)}
	case model.PayPerCuft:
		return PerCuftPlan{RatePerCuft: deref(cfg.RatePerCuft)}
	case model.PayPerMileAndCuft:
		return PerMileAndCuftPlan{RatePerMile: deref(cfg.RatePerMile), RatePerCuft: deref(cfg.RatePerCuft)}
	case model.PayPercentOfRevenue:
		return PercentOfRevenuePlan{Percent: deref(cfg.PercentOfRevenue)}
	case model.PayFlatDailyRate:
		return FlatDailyPlan{DailyRate: deref(cfg.FlatDailyRate)}
	default:
		return UnknownPlan{RawMode: string(*cfg.PayMode)}
	}
}

// ─── Cost Estimate ──────────────────────────────────────────

// CostBreakdown exposes every cost term; inapplicable terms are zero.
type CostBreakdown struct {
	MileagePay      float64 `json:"mileage_pay"`
	CuftPay         float64 `json:"cuft_pay"`
	RevenueSharePay float64 `json:"revenue_share_pay"`
	DailyPay        float64 `json:"daily_pay"`
	FallbackPay     float64 `json:"fallback_pay"`
	Fuel            float64 `json:"fuel"`
}

// CostEstimate is the driver + fuel cost of hauling one load.
type CostEstimate struct {
	PayMode    string        `json:"pay_mode"`
	Fallback   bool          `json:"fallback"`
	DriverCost float64       `json:"driver_cost"`
	FuelCost   float64       `json:"fuel_cost"`
	TotalCost  float64       `json:"total_cost"`
	Breakdown  CostBreakdown `json:"breakdown"`
}

// EstimateCosts prices a load for the given pay plan.
//
//	per_mile            totalMiles × rate_per_mile
//	per_cuft            cubicFeet × rate_per_cuft
//	per_mile_and_cuft   both of the above, summed
//	percent_of_revenue  revenue × percent / 100
//	flat_daily_rate     estimatedDays × daily rate
//	unknown             totalMiles × FallbackRatePerMile
//
// Fuel is totalMiles × fuelCostPerMile. Money is rounded to cents.
func EstimateCosts(plan PayPlan, totalMiles, cubicFeet, revenue float64, estimatedDays int, fuelCostPerMile float64) CostEstimate {
	var b CostBreakdown
	fallback := false

	switch p := plan.(type) {
	case PerMilePlan:
		b.MileagePay = totalMiles * p.RatePerMile
	case PerCuftPlan:
		b.CuftPay = cubicFeet * p.RatePerCuft
	case PerMileAndCuftPlan:
		b.MileagePay = totalMiles * p.RatePerMile
		b.CuftPay = cubicFeet * p.RatePerCuft
	case PercentOfRevenuePlan:
		b.RevenueSharePay = revenue * (p.Percent / 100)
	case FlatDailyPlan:
		b.DailyPay = float64(estimatedDays) * p.DailyRate
	case UnknownPlan:
		b.FallbackPay = totalMiles * FallbackRatePerMile
		fallback = true
	default:
		plan = UnknownPlan{}
		b.FallbackPay = totalMiles * FallbackRatePerMile
		fallback = true
	}

	driverCost := b.MileagePay + b.CuftPay + b.RevenueSharePay + b.DailyPay + b.FallbackPay
	fuelCost := totalMiles * fuelCostPerMile

	b.MileagePay = money(b.MileagePay)
	b.CuftPay = money(b.CuftPay)
	b.RevenueSharePay = money(b.RevenueSharePay)
	b.DailyPay = money(b.DailyPay)
	b.FallbackPay = money(b.FallbackPay)
	b.Fuel = money(fuelCost)

	return CostEstimate{
		PayMode:    plan.Mode(),
		Fallback:   fallback,
		DriverCost: money(driverCost),
		FuelCost:   money(fuelCost),
		TotalCost:  money(driverCost + fuelCost),
		Breakdown:  b,
	}
}

// EstimateDaysForLoad returns the whole driving days needed for totalMiles,
// never less than one.
func EstimateDaysForLoad(totalMiles, avgMilesPerDay float64) int {
	if avgMilesPerDay <= 0 {
		avgMilesPerDay = DefaultAvgMilesPerDay
	}
	return max(1, int(math.Ceil(totalMiles/avgMilesPerDay)))
}

// CalculateProfitMargin returns the margin in percent, or 0 for no revenue.
func CalculateProfitMargin(revenue, totalCost float64) float64 {
	if revenue == 0 {
		return 0
	}
	return geo.Round((revenue-totalCost)/revenue*100, 2)
}

// ─── CostEstimator ──────────────────────────────────────────

// CostEstimator binds the fleet-wide fuel and pace assumptions.
type CostEstimator struct {
	FuelCostPerMile float64
	AvgMilesPerDay  float64
}

// NewCostEstimator returns an estimator; non-positive values take defaults.
func NewCostEstimator(fuelCostPerMile, avgMilesPerDay float64) CostEstimator {
	if fuelCostPerMile <= 0 {
		fuelCostPerMile = DefaultFuelCostPerMile
	}
	if avgMilesPerDay <= 0 {
		avgMilesPerDay = DefaultAvgMilesPerDay
	}
	return CostEstimator{FuelCostPerMile: fuelCostPerMile, AvgMilesPerDay: avgMilesPerDay}
}

// Estimate prices a load for a stored driver pay config.
func (e CostEstimator) Estimate(cfg model.DriverPayConfig, totalMiles, cubicFeet, revenue float64, estimatedDays int) CostEstimate {
	return EstimateCosts(PayPlanFor(cfg), totalMiles, cubicFeet, revenue, estimatedDays, e.FuelCostPerMile)
}

// EstimateDays converts miles to driving days at the estimator's pace.
func (e CostEstimator) EstimateDays(totalMiles float64) int {
	return EstimateDaysForLoad(totalMiles, e.AvgMilesPerDay)
}

func money(x float64) float64 {
	return geo.Round(x, 2)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
