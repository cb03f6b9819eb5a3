package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiva/backhaul/internal/model"
)

// CompanyRepository reads company-level settings and partnerships.
type CompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a new repository backed by the given PG pool.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// GetCompanySettings fetches the sharing defaults of a company.
func (r *CompanyRepository) GetCompanySettings(ctx context.Context, companyID string) (*model.CompanySettings, error) {
	s := &model.CompanySettings{}
	var visibility *string
	err := r.pool.QueryRow(ctx, `
		SELECT company_id, default_location_sharing, default_capacity_visibility
		FROM company_settings
		WHERE company_id = $1
	`, companyID).Scan(&s.CompanyID, &s.DefaultLocationSharing, &visibility)
	if err != nil {
		return nil, fmt.Errorf("get company settings %s: %w", companyID, notFound(err))
	}
	s.DefaultCapacityVisibility = visibilityPtr(visibility)
	return s, nil
}

// ListActivePartnerIDs returns the other side of every active partnership
// the company takes part in.
func (r *CompanyRepository) ListActivePartnerIDs(ctx context.Context, companyID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT CASE WHEN company_a_id = $1 THEN company_b_id ELSE company_a_id END
		FROM partnerships
		WHERE status = 'active'
		  AND (company_a_id = $1 OR company_b_id = $1)
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list partners of %s: %w", companyID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan partners of %s: %w", companyID, err)
	}
	return ids, nil
}
