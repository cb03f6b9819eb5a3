package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/internal/service"
)

// CostRequest is the JSON body for POST /api/v1/costs/estimate.
type CostRequest struct {
	PayConfig     model.DriverPayConfig `json:"pay_config"`
	TotalMiles    float64               `json:"total_miles"`
	CubicFeet     float64               `json:"cubic_feet"`
	Revenue       float64               `json:"revenue"`
	EstimatedDays int                   `json:"estimated_days,omitempty"`
}

// CostResponse is the estimate plus the derived days and margin.
type CostResponse struct {
	service.CostEstimate
	EstimatedDays int     `json:"estimated_days"`
	ProfitMargin  float64 `json:"profit_margin"`
}

// CostHandler prices a load for a driver pay configuration.
type CostHandler struct {
	estimator service.CostEstimator
}

// NewCostHandler creates a new cost handler.
func NewCostHandler(estimator service.CostEstimator) *CostHandler {
	return &CostHandler{estimator: estimator}
}

// EstimateCost handles POST /api/v1/costs/estimate
//
// Request body:
//
//	{
//	  "pay_config": {"pay_mode": "per_mile", "rate_per_mile": 0.60},
//	  "total_miles": 300, "cubic_feet": 800, "revenue": 1500
//	}
//
// estimated_days is derived from total_miles when omitted. An unknown
// pay_mode is priced at the fallback rate and flagged with fallback=true.
func (h *CostHandler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	var req CostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.TotalMiles < 0 || req.CubicFeet < 0 || req.Revenue < 0 || req.EstimatedDays < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "total_miles, cubic_feet, revenue and estimated_days must not be negative",
		})
		return
	}

	days := req.EstimatedDays
	if days == 0 {
		days = h.estimator.EstimateDays(req.TotalMiles)
	}

	est := h.estimator.Estimate(req.PayConfig, req.TotalMiles, req.CubicFeet, req.Revenue, days)
	writeJSON(w, http.StatusOK, CostResponse{
		CostEstimate:  est,
		EstimatedDays: days,
		ProfitMargin:  service.CalculateProfitMargin(req.Revenue, est.TotalCost),
	})
}
