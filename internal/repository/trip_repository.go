package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/backhaul/internal/model"
)

// TripRepository reads trips and the driver, trailer and loads attached to
// them.
type TripRepository struct {
	pool *pgxpool.Pool
}

// NewTripRepository creates a new repository backed by the given PG pool.
func NewTripRepository(pool *pgxpool.Pool) *TripRepository {
	return &TripRepository{pool: pool}
}

const tripColumns = `
	id, owner_id, company_id, driver_id, trailer_id,
	COALESCE(origin_city, ''), COALESCE(origin_state, ''), COALESCE(origin_zip, ''),
	COALESCE(destination_city, ''), COALESCE(destination_state, ''), COALESCE(destination_zip, ''),
	current_location_lat, current_location_lng,
	current_location_city, current_location_state,
	remaining_capacity_cuft, COALESCE(return_route_preference, '{}'),
	share_location, share_capacity, trip_capacity_visibility`

func scanTrip(row pgx.Row) (*model.Trip, error) {
	t := &model.Trip{}
	var visibility *string
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.CompanyID, &t.DriverID, &t.TrailerID,
		&t.Origin.City, &t.Origin.State, &t.Origin.Zip,
		&t.Destination.City, &t.Destination.State, &t.Destination.Zip,
		&t.CurrentLat, &t.CurrentLng,
		&t.CurrentCity, &t.CurrentState,
		&t.RemainingCapacityCuft, &t.ReturnRoutePreference,
		&t.ShareLocation, &t.ShareCapacity, &visibility,
	)
	if err != nil {
		return nil, err
	}
	t.CapacityVisibility = visibilityPtr(visibility)
	return t, nil
}

// GetTripForOwner fetches a trip only if ownerID owns it.
func (r *TripRepository) GetTripForOwner(ctx context.Context, tripID, ownerID string) (*model.Trip, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 AND owner_id = $2`, tripID, ownerID)
	t, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", tripID, notFound(err))
	}
	return t, nil
}

// GetTrip fetches a trip by ID.
func (r *TripRepository) GetTrip(ctx context.Context, tripID string) (*model.Trip, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, tripID)
	t, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", tripID, notFound(err))
	}
	return t, nil
}

// GetDriver fetches a driver's pay config and sharing preferences.
func (r *TripRepository) GetDriver(ctx context.Context, driverID string) (*model.Driver, error) {
	d := &model.Driver{}
	var payMode, visibility *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id,
		       pay_mode, rate_per_mile, rate_per_cuft, percent_of_revenue, flat_daily_rate,
		       location_sharing_enabled, auto_post_capacity, capacity_visibility
		FROM drivers
		WHERE id = $1
	`, driverID).Scan(
		&d.ID, &d.CompanyID,
		&payMode, &d.Pay.RatePerMile, &d.Pay.RatePerCuft, &d.Pay.PercentOfRevenue, &d.Pay.FlatDailyRate,
		&d.LocationSharingEnabled, &d.AutoPostCapacity, &visibility,
	)
	if err != nil {
		return nil, fmt.Errorf("get driver %s: %w", driverID, notFound(err))
	}
	if payMode != nil {
		m := model.PayMode(*payMode)
		d.Pay.PayMode = &m
	}
	d.CapacityVisibility = visibilityPtr(visibility)
	return d, nil
}

// GetTrailer fetches a trailer's cubic capacity.
func (r *TripRepository) GetTrailer(ctx context.Context, trailerID string) (*model.Trailer, error) {
	t := &model.Trailer{}
	err := r.pool.QueryRow(ctx, `SELECT id, cubic_capacity FROM trailers WHERE id = $1`, trailerID).
		Scan(&t.ID, &t.CubicCapacity)
	if err != nil {
		return nil, fmt.Errorf("get trailer %s: %w", trailerID, notFound(err))
	}
	return t, nil
}

// ListTripLoads returns the loads on a trip in delivery order: by delivery
// date (undated last), then by when they were attached.
func (r *TripRepository) ListTripLoads(ctx context.Context, tripID string) ([]model.TripLoad, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id,
		       COALESCE(l.delivery_city, ''), COALESCE(l.delivery_state, ''), COALESCE(l.delivery_zip, ''),
		       l.delivery_date, l.cubic_feet, tl.actual_cuft_loaded
		FROM trip_loads tl
		JOIN loads l ON l.id = tl.load_id
		WHERE tl.trip_id = $1
		ORDER BY l.delivery_date ASC NULLS LAST, tl.created_at ASC, l.id ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list trip loads %s: %w", tripID, err)
	}
	defer rows.Close()

	var loads []model.TripLoad
	for rows.Next() {
		var l model.TripLoad
		if err := rows.Scan(
			&l.LoadID,
			&l.Delivery.City, &l.Delivery.State, &l.Delivery.Zip,
			&l.DeliveryDate, &l.CubicFeet, &l.ActualCuftLoaded,
		); err != nil {
			return nil, fmt.Errorf("scan trip load: %w", err)
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

func visibilityPtr(s *string) *model.CapacityVisibility {
	if s == nil {
		return nil
	}
	v := model.CapacityVisibility(*s)
	return &v
}
