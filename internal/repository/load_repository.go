package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/backhaul/internal/model"
)

// LoadRepository queries marketplace loads.
type LoadRepository struct {
	pool *pgxpool.Pool
}

// NewLoadRepository creates a new repository backed by the given PG pool.
func NewLoadRepository(pool *pgxpool.Pool) *LoadRepository {
	return &LoadRepository{pool: pool}
}

// ListPostedLoads returns loads that are posted and unassigned, not owned by
// excludeOwnerID, and picking up on or after pickupFrom.
//
// Uses the partial index idx_loads_posted on (pickup_date, id).
func (r *LoadRepository) ListPostedLoads(ctx context.Context, excludeOwnerID string, pickupFrom time.Time) ([]model.MarketplaceLoad, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, company_id, posted_by_company_id,
		       COALESCE(pickup_city, ''), COALESCE(pickup_state, ''), COALESCE(pickup_zip, ''),
		       COALESCE(delivery_city, ''), COALESCE(delivery_state, ''), COALESCE(delivery_zip, ''),
		       pickup_date, cubic_feet, total_rate, rate_per_cuft, balance_due
		FROM loads
		WHERE posting_status = 'posted'
		  AND assigned_carrier_id IS NULL
		  AND pickup_date >= $2::date
		  AND owner_id <> $1
		ORDER BY pickup_date ASC, id ASC
	`, excludeOwnerID, pickupFrom)
	if err != nil {
		return nil, fmt.Errorf("list posted loads: %w", err)
	}
	defer rows.Close()

	var loads []model.MarketplaceLoad
	for rows.Next() {
		var l model.MarketplaceLoad
		if err := rows.Scan(
			&l.ID, &l.OwnerID, &l.CompanyID, &l.PostedByCompanyID,
			&l.Pickup.City, &l.Pickup.State, &l.Pickup.Zip,
			&l.Delivery.City, &l.Delivery.State, &l.Delivery.Zip,
			&l.PickupDate, &l.CubicFeet, &l.TotalRate, &l.RatePerCuft, &l.BalanceDue,
		); err != nil {
			return nil, fmt.Errorf("scan posted load: %w", err)
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}
