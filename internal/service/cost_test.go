package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shiva/backhaul/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestEstimateCosts_PerMile(t *testing.T) {
	cfg := model.DriverPayConfig{PayMode: ptr(model.PayPerMile), RatePerMile: ptr(0.60)}
	got := NewCostEstimator(0, 0).Estimate(cfg, 300, 400, 1200, 1)

	assert.Equal(t, "per_mile", got.PayMode)
	assert.False(t, got.Fallback)
	assert.InDelta(t, 180.00, got.DriverCost, 1e-9)
	assert.InDelta(t, 150.00, got.FuelCost, 1e-9)
	assert.InDelta(t, 330.00, got.TotalCost, 1e-9)
	assert.InDelta(t, 180.00, got.Breakdown.MileagePay, 1e-9)
	assert.Zero(t, got.Breakdown.CuftPay)
}

func TestEstimateCosts_PerCuft(t *testing.T) {
	got := EstimateCosts(PerCuftPlan{RatePerCuft: 0.25}, 100, 800, 0, 1, DefaultFuelCostPerMile)
	assert.InDelta(t, 200.00, got.DriverCost, 1e-9)
	assert.InDelta(t, 50.00, got.FuelCost, 1e-9)
	assert.InDelta(t, 250.00, got.TotalCost, 1e-9)
}

func TestEstimateCosts_PerMileAndCuftIsAdditive(t *testing.T) {
	miles, cuft := 437.0, 612.0
	rateMile, rateCuft := 0.55, 0.30
	got := EstimateCosts(PerMileAndCuftPlan{RatePerMile: rateMile, RatePerCuft: rateCuft}, miles, cuft, 0, 1, 0)

	assert.InDelta(t, money(miles*rateMile+cuft*rateCuft), got.DriverCost, 1e-9)
	assert.InDelta(t, got.Breakdown.MileagePay+got.Breakdown.CuftPay, got.DriverCost, 0.011)
}

func TestEstimateCosts_PercentOfRevenue(t *testing.T) {
	got := EstimateCosts(PercentOfRevenuePlan{Percent: 25}, 200, 300, 2000, 1, 0.5)
	assert.InDelta(t, 500.00, got.DriverCost, 1e-9)
	assert.InDelta(t, 100.00, got.FuelCost, 1e-9)
	assert.InDelta(t, 500.00, got.Breakdown.RevenueSharePay, 1e-9)
}

func TestEstimateCosts_FlatDaily(t *testing.T) {
	got := EstimateCosts(FlatDailyPlan{DailyRate: 250}, 900, 300, 2000, 2, 0.5)
	assert.InDelta(t, 500.00, got.DriverCost, 1e-9)
	assert.InDelta(t, 950.00, got.TotalCost, 1e-9)
}

func TestEstimateCosts_UnknownModeFallsBack(t *testing.T) {
	cases := map[string]model.DriverPayConfig{
		"unset":        {},
		"unrecognized": {PayMode: ptr(model.PayMode("per_hour")), RatePerMile: ptr(2.0)},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			got := NewCostEstimator(0, 0).Estimate(cfg, 300, 100, 1000, 1)
			assert.True(t, got.Fallback)
			assert.Equal(t, "unknown", got.PayMode)
			assert.InDelta(t, 150.00, got.DriverCost, 1e-9)
			assert.InDelta(t, 150.00, got.Breakdown.FallbackPay, 1e-9)
		})
	}
}

func TestPayPlanFor_MissingRatesAreZero(t *testing.T) {
	plan := PayPlanFor(model.DriverPayConfig{PayMode: ptr(model.PayPerMile)})
	assert.Equal(t, PerMilePlan{}, plan)

	got := EstimateCosts(plan, 100, 0, 0, 1, 0.5)
	assert.Zero(t, got.DriverCost)
	assert.InDelta(t, 50.0, got.TotalCost, 1e-9)
}

func TestEstimateDaysForLoad(t *testing.T) {
	assert.Equal(t, 1, EstimateDaysForLoad(0, 500))
	assert.Equal(t, 1, EstimateDaysForLoad(499, 500))
	assert.Equal(t, 1, EstimateDaysForLoad(500, 500))
	assert.Equal(t, 2, EstimateDaysForLoad(501, 500))
	assert.Equal(t, 3, EstimateDaysForLoad(1200, 0))
}

func TestCalculateProfitMargin(t *testing.T) {
	assert.Zero(t, CalculateProfitMargin(0, 100))
	assert.InDelta(t, 25.0, CalculateProfitMargin(400, 300), 1e-9)
	assert.InDelta(t, -50.0, CalculateProfitMargin(200, 300), 1e-9)
	assert.InDelta(t, 33.33, CalculateProfitMargin(300, 200), 1e-9)
}

func TestNewCostEstimator_Defaults(t *testing.T) {
	e := NewCostEstimator(-1, 0)
	assert.Equal(t, DefaultFuelCostPerMile, e.FuelCostPerMile)
	assert.Equal(t, DefaultAvgMilesPerDay, e.AvgMilesPerDay)
	assert.Equal(t, 2, e.EstimateDays(750))
}
