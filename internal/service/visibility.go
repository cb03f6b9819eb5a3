package service

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
)

// ─── Override Chains ────────────────────────────────────────

// FirstSet returns the first non-nil source, or fallback when every source is
// unset. A source holding false (or any other zero value) is terminal: only
// nil falls through to the next level.
func FirstSet[T any](fallback T, sources ...*T) T {
	for _, s := range sources {
		if s != nil {
			return *s
		}
	}
	return fallback
}

// GetEffectiveVisibility resolves the sharing policy for a driver's trip with
// the trip > driver > company override order. A nil driver or company simply
// contributes no sources.
//
// shareCapacity has no company-level source.
func GetEffectiveVisibility(trip model.Trip, driver *model.Driver, company *model.CompanySettings) model.EffectiveVisibility {
	var (
		driverLocation, driverCapacity *bool
		driverVisibility               *model.CapacityVisibility
		companyLocation                *bool
		companyVisibility              *model.CapacityVisibility
	)
	if driver != nil {
		driverLocation = driver.LocationSharingEnabled
		driverCapacity = driver.AutoPostCapacity
		driverVisibility = driver.CapacityVisibility
	}
	if company != nil {
		companyLocation = company.DefaultLocationSharing
		companyVisibility = company.DefaultCapacityVisibility
	}

	return model.EffectiveVisibility{
		ShareLocation:      FirstSet(false, trip.ShareLocation, driverLocation, companyLocation),
		ShareCapacity:      FirstSet(false, trip.ShareCapacity, driverCapacity),
		CapacityVisibility: FirstSet(model.VisibilityPrivate, trip.CapacityVisibility, driverVisibility, companyVisibility),
	}
}

// IsCapacityVisibleTo reports whether requestingCompanyID may see capacity
// owned by ownerCompanyID under visibility. Unknown levels are treated as
// private.
func IsCapacityVisibleTo(visibility model.CapacityVisibility, requestingCompanyID, ownerCompanyID string, partnerCompanyIDs []string) bool {
	switch visibility {
	case model.VisibilityPublic:
		return true
	case model.VisibilityPartnersOnly:
		return requestingCompanyID == ownerCompanyID || slices.Contains(partnerCompanyIDs, requestingCompanyID)
	default:
		return requestingCompanyID == ownerCompanyID
	}
}

// ─── VisibilityService ──────────────────────────────────────

// VisibilityStore loads the records that feed visibility resolution.
type VisibilityStore interface {
	GetTrip(ctx context.Context, tripID string) (*model.Trip, error)
	GetDriver(ctx context.Context, driverID string) (*model.Driver, error)
	GetCompanySettings(ctx context.Context, companyID string) (*model.CompanySettings, error)
}

// VisibilityReport is the resolved policy of a trip plus the answer for one
// requesting company.
type VisibilityReport struct {
	TripID         string                    `json:"trip_id"`
	OwnerCompanyID string                    `json:"owner_company_id"`
	Effective      model.EffectiveVisibility `json:"effective"`
	RequestingID   string                    `json:"requesting_company_id,omitempty"`
	Visible        bool                      `json:"visible"`
}

// VisibilityService answers capacity-visibility questions for stored trips.
type VisibilityService struct {
	store    VisibilityStore
	partners PartnerStore
	log      *zap.Logger
}

// NewVisibilityService creates a visibility service.
func NewVisibilityService(store VisibilityStore, partners PartnerStore, log *zap.Logger) *VisibilityService {
	return &VisibilityService{
		store:    store,
		partners: partners,
		log:      log.With(zap.String("component", "visibility")),
	}
}

// ResolveForTrip returns the trip's effective visibility and whether
// requestingCompanyID can see its capacity. Visible is only true when the
// trip shares capacity at all.
func (s *VisibilityService) ResolveForTrip(ctx context.Context, tripID, requestingCompanyID string) (*VisibilityReport, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("visibility: load trip %s: %w", tripID, err)
	}

	var driver *model.Driver
	if trip.DriverID != nil {
		driver, err = s.store.GetDriver(ctx, *trip.DriverID)
		if err != nil {
			// A missing driver only removes one override level.
			s.log.Warn("driver lookup failed", zap.String("trip_id", tripID), zap.Error(err))
			driver = nil
		}
	}

	company, err := s.store.GetCompanySettings(ctx, trip.CompanyID)
	if err != nil {
		s.log.Warn("company settings lookup failed", zap.String("company_id", trip.CompanyID), zap.Error(err))
		company = nil
	}

	effective := GetEffectiveVisibility(*trip, driver, company)
	report := &VisibilityReport{
		TripID:         trip.ID,
		OwnerCompanyID: trip.CompanyID,
		Effective:      effective,
		RequestingID:   requestingCompanyID,
	}
	if requestingCompanyID == "" || !effective.ShareCapacity {
		report.Visible = requestingCompanyID != "" && requestingCompanyID == trip.CompanyID
		return report, nil
	}

	var partnerIDs []string
	if effective.CapacityVisibility == model.VisibilityPartnersOnly {
		partnerIDs, err = s.partners.ListActivePartnerIDs(ctx, trip.CompanyID)
		if err != nil {
			s.log.Warn("partnership lookup failed", zap.String("company_id", trip.CompanyID), zap.Error(err))
			partnerIDs = nil
		}
	}

	report.Visible = IsCapacityVisibleTo(effective.CapacityVisibility, requestingCompanyID, trip.CompanyID, partnerIDs)
	return report, nil
}

// CanCompanySeeTripCapacity reports whether requestingCompanyID may see the
// trip's spare capacity.
func (s *VisibilityService) CanCompanySeeTripCapacity(ctx context.Context, tripID, requestingCompanyID string) (bool, error) {
	report, err := s.ResolveForTrip(ctx, tripID, requestingCompanyID)
	if err != nil {
		return false, err
	}
	return report.Visible, nil
}
