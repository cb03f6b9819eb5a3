package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/backhaul/internal/model"
)

// SuggestionRepository persists scored suggestions in load_suggestions.
type SuggestionRepository struct {
	pool *pgxpool.Pool
}

// NewSuggestionRepository creates a new repository backed by the given PG pool.
func NewSuggestionRepository(pool *pgxpool.Pool) *SuggestionRepository {
	return &SuggestionRepository{pool: pool}
}

const suggestionColumns = `
	id, trip_id, company_id, driver_id, owner_id, status, expires_at, created_at, updated_at,
	load_id, COALESCE(load_company_id, ''), suggestion_type,
	pickup_city, pickup_state, dropoff_city, dropoff_state, cubic_feet,
	distance_to_pickup_miles, load_miles, total_miles, detour_miles,
	revenue_estimate, driver_cost_estimate, fuel_cost_estimate,
	profit_estimate, profit_per_mile, profit_margin, estimated_days,
	capacity_fit_percent, match_score,
	proximity_score, profit_score, capacity_score, route_score, partner_score`

// upsertSuggestionSQL keys on (trip_id, load_id). A rerun overwrites every
// scored field and resets the row to pending; id and created_at are kept.
const upsertSuggestionSQL = `
	INSERT INTO load_suggestions (
		id, trip_id, company_id, driver_id, owner_id, status, expires_at, created_at, updated_at,
		load_id, load_company_id, suggestion_type,
		pickup_city, pickup_state, dropoff_city, dropoff_state, cubic_feet,
		distance_to_pickup_miles, load_miles, total_miles, detour_miles,
		revenue_estimate, driver_cost_estimate, fuel_cost_estimate,
		profit_estimate, profit_per_mile, profit_margin, estimated_days,
		capacity_fit_percent, match_score,
		proximity_score, profit_score, capacity_score, route_score, partner_score
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9,
		$10, NULLIF($11, ''), $12,
		$13, $14, $15, $16, $17,
		$18, $19, $20, $21,
		$22, $23, $24,
		$25, $26, $27, $28,
		$29, $30,
		$31, $32, $33, $34, $35
	)
	ON CONFLICT (trip_id, load_id) DO UPDATE SET
		company_id               = EXCLUDED.company_id,
		driver_id                = EXCLUDED.driver_id,
		owner_id                 = EXCLUDED.owner_id,
		status                   = EXCLUDED.status,
		expires_at               = EXCLUDED.expires_at,
		updated_at               = EXCLUDED.updated_at,
		load_company_id          = EXCLUDED.load_company_id,
		suggestion_type          = EXCLUDED.suggestion_type,
		pickup_city              = EXCLUDED.pickup_city,
		pickup_state             = EXCLUDED.pickup_state,
		dropoff_city             = EXCLUDED.dropoff_city,
		dropoff_state            = EXCLUDED.dropoff_state,
		cubic_feet               = EXCLUDED.cubic_feet,
		distance_to_pickup_miles = EXCLUDED.distance_to_pickup_miles,
		load_miles               = EXCLUDED.load_miles,
		total_miles              = EXCLUDED.total_miles,
		detour_miles             = EXCLUDED.detour_miles,
		revenue_estimate         = EXCLUDED.revenue_estimate,
		driver_cost_estimate     = EXCLUDED.driver_cost_estimate,
		fuel_cost_estimate       = EXCLUDED.fuel_cost_estimate,
		profit_estimate          = EXCLUDED.profit_estimate,
		profit_per_mile          = EXCLUDED.profit_per_mile,
		profit_margin            = EXCLUDED.profit_margin,
		estimated_days           = EXCLUDED.estimated_days,
		capacity_fit_percent     = EXCLUDED.capacity_fit_percent,
		match_score              = EXCLUDED.match_score,
		proximity_score          = EXCLUDED.proximity_score,
		profit_score             = EXCLUDED.profit_score,
		capacity_score           = EXCLUDED.capacity_score,
		route_score              = EXCLUDED.route_score,
		partner_score            = EXCLUDED.partner_score`

func upsertArgs(id string, r model.SuggestionRecord) []any {
	s := r.ScoredSuggestion
	return []any{
		id, r.TripID, r.CompanyID, r.DriverID, r.OwnerID, string(r.Status), r.ExpiresAt, r.CreatedAt, r.UpdatedAt,
		s.LoadID, s.LoadCompanyID, string(s.SuggestionType),
		s.PickupCity, s.PickupState, s.DropoffCity, s.DropoffState, s.CubicFeet,
		s.DistanceToPickupMiles, s.LoadMiles, s.TotalMiles, s.DetourMiles,
		s.RevenueEstimate, s.DriverCostEstimate, s.FuelCostEstimate,
		s.ProfitEstimate, s.ProfitPerMile, s.ProfitMargin, s.EstimatedDays,
		s.CapacityFitPercent, s.MatchScore,
		s.ScoreBreakdown.Proximity, s.ScoreBreakdown.Profit, s.ScoreBreakdown.Capacity,
		s.ScoreBreakdown.Route, s.ScoreBreakdown.Partner,
	}
}

// UpsertSuggestions writes every row in one transaction using a single
// batch round trip. Either all rows land or none do.
func (r *SuggestionRepository) UpsertSuggestions(ctx context.Context, rows []model.SuggestionRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("suggestions: begin tx: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(upsertSuggestionSQL, upsertArgs(id, row)...)
	}

	br := tx.SendBatch(ctx, batch)
	for _, row := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("suggestions: upsert load %s: %w", row.LoadID, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("suggestions: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("suggestions: commit: %w", err)
	}
	return len(rows), nil
}

// ListActive returns a trip's suggestions that expire after now, best
// score first.
func (r *SuggestionRepository) ListActive(ctx context.Context, tripID string, now time.Time) ([]model.SuggestionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+suggestionColumns+`
		FROM load_suggestions
		WHERE trip_id = $1 AND expires_at > $2
		ORDER BY match_score DESC, created_at ASC, load_id ASC
	`, tripID, now)
	if err != nil {
		return nil, fmt.Errorf("list suggestions %s: %w", tripID, err)
	}
	defer rows.Close()

	var out []model.SuggestionRecord
	for rows.Next() {
		rec, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// UpdateStatus sets a suggestion's status and returns the updated row.
func (r *SuggestionRepository) UpdateStatus(ctx context.Context, id string, status model.SuggestionStatus) (*model.SuggestionRecord, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE load_suggestions
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+suggestionColumns, id, string(status))
	rec, err := scanSuggestion(row)
	if err != nil {
		return nil, fmt.Errorf("update suggestion %s: %w", id, notFound(err))
	}
	return rec, nil
}

func scanSuggestion(row pgx.Row) (*model.SuggestionRecord, error) {
	rec := &model.SuggestionRecord{}
	s := &rec.ScoredSuggestion
	var status, suggestionType string
	err := row.Scan(
		&rec.ID, &rec.TripID, &rec.CompanyID, &rec.DriverID, &rec.OwnerID, &status,
		&rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt,
		&s.LoadID, &s.LoadCompanyID, &suggestionType,
		&s.PickupCity, &s.PickupState, &s.DropoffCity, &s.DropoffState, &s.CubicFeet,
		&s.DistanceToPickupMiles, &s.LoadMiles, &s.TotalMiles, &s.DetourMiles,
		&s.RevenueEstimate, &s.DriverCostEstimate, &s.FuelCostEstimate,
		&s.ProfitEstimate, &s.ProfitPerMile, &s.ProfitMargin, &s.EstimatedDays,
		&s.CapacityFitPercent, &s.MatchScore,
		&s.ScoreBreakdown.Proximity, &s.ScoreBreakdown.Profit, &s.ScoreBreakdown.Capacity,
		&s.ScoreBreakdown.Route, &s.ScoreBreakdown.Partner,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = model.SuggestionStatus(status)
	s.SuggestionType = model.SuggestionType(suggestionType)
	return rec, nil
}
