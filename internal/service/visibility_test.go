package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
)

func vis(v model.CapacityVisibility) *model.CapacityVisibility { return &v }

func TestFirstSet(t *testing.T) {
	assert.True(t, FirstSet(false, nil, ptr(true), ptr(false)))
	assert.False(t, FirstSet(true, ptr(false), ptr(true)), "false is terminal")
	assert.Equal(t, "fallback", FirstSet("fallback", nil, nil))
	assert.Equal(t, "fallback", FirstSet[string]("fallback"))
}

func TestGetEffectiveVisibility_DriverCapacityFallback(t *testing.T) {
	trip := model.Trip{}
	driver := &model.Driver{AutoPostCapacity: ptr(true)}

	got := GetEffectiveVisibility(trip, driver, nil)
	assert.True(t, got.ShareCapacity)
	assert.False(t, got.ShareLocation)
	assert.Equal(t, model.VisibilityPrivate, got.CapacityVisibility)
}

func TestGetEffectiveVisibility_TripOverridesAll(t *testing.T) {
	trip := model.Trip{
		ShareLocation:      ptr(false),
		ShareCapacity:      ptr(false),
		CapacityVisibility: vis(model.VisibilityPublic),
	}
	driver := &model.Driver{
		LocationSharingEnabled: ptr(true),
		AutoPostCapacity:       ptr(true),
		CapacityVisibility:     vis(model.VisibilityPartnersOnly),
	}
	company := &model.CompanySettings{
		DefaultLocationSharing:    ptr(true),
		DefaultCapacityVisibility: vis(model.VisibilityPartnersOnly),
	}

	got := GetEffectiveVisibility(trip, driver, company)
	assert.Equal(t, model.EffectiveVisibility{
		ShareLocation:      false,
		ShareCapacity:      false,
		CapacityVisibility: model.VisibilityPublic,
	}, got)
}

func TestGetEffectiveVisibility_CompanyDefaults(t *testing.T) {
	company := &model.CompanySettings{
		DefaultLocationSharing:    ptr(true),
		DefaultCapacityVisibility: vis(model.VisibilityPartnersOnly),
	}

	got := GetEffectiveVisibility(model.Trip{}, &model.Driver{}, company)
	assert.True(t, got.ShareLocation)
	assert.Equal(t, model.VisibilityPartnersOnly, got.CapacityVisibility)
	assert.False(t, got.ShareCapacity, "share capacity has no company default")
}

func TestGetEffectiveVisibility_AllUnset(t *testing.T) {
	got := GetEffectiveVisibility(model.Trip{}, nil, nil)
	assert.Equal(t, model.EffectiveVisibility{CapacityVisibility: model.VisibilityPrivate}, got)
}

func TestIsCapacityVisibleTo(t *testing.T) {
	partners := []string{"p1", "p2"}
	cases := []struct {
		name       string
		visibility model.CapacityVisibility
		requester  string
		want       bool
	}{
		{"public stranger", model.VisibilityPublic, "x", true},
		{"partners partner", model.VisibilityPartnersOnly, "p2", true},
		{"partners owner", model.VisibilityPartnersOnly, "owner", true},
		{"partners stranger", model.VisibilityPartnersOnly, "x", false},
		{"private owner", model.VisibilityPrivate, "owner", true},
		{"private partner", model.VisibilityPrivate, "p1", false},
		{"unknown level", model.CapacityVisibility("everyone"), "p1", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, IsCapacityVisibleTo(c.visibility, c.requester, "owner", partners))
		})
	}
}

func newVisibilityFixture() (*VisibilityService, *fakeTrips, *fakeCompanies) {
	trips := &fakeTrips{
		trips: map[string]model.Trip{
			"t1": {ID: "t1", OwnerID: "u1", CompanyID: "c1", DriverID: ptr("d1")},
		},
		drivers: map[string]model.Driver{
			"d1": {ID: "d1", AutoPostCapacity: ptr(true)},
		},
	}
	companies := &fakeCompanies{settings: map[string]model.CompanySettings{
		"c1": {CompanyID: "c1", DefaultCapacityVisibility: vis(model.VisibilityPartnersOnly)},
	}}
	partners := &fakePartners{ids: map[string][]string{"c1": {"c2"}}}
	svc := NewVisibilityService(visibilityStore{trips, companies}, partners, zap.NewNop())
	return svc, trips, companies
}

func TestVisibilityService_ResolveForTrip(t *testing.T) {
	svc, _, _ := newVisibilityFixture()

	report, err := svc.ResolveForTrip(context.Background(), "t1", "c2")
	require.NoError(t, err)
	assert.Equal(t, "c1", report.OwnerCompanyID)
	assert.True(t, report.Effective.ShareCapacity)
	assert.Equal(t, model.VisibilityPartnersOnly, report.Effective.CapacityVisibility)
	assert.True(t, report.Visible)

	ok, err := svc.CanCompanySeeTripCapacity(context.Background(), "t1", "c9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVisibilityService_NotSharing(t *testing.T) {
	svc, trips, _ := newVisibilityFixture()
	trip := trips.trips["t1"]
	trip.ShareCapacity = ptr(false)
	trip.CapacityVisibility = vis(model.VisibilityPublic)
	trips.trips["t1"] = trip

	ok, err := svc.CanCompanySeeTripCapacity(context.Background(), "t1", "c2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanCompanySeeTripCapacity(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.True(t, ok, "owner always sees its own capacity")
}

func TestVisibilityService_MissingCompanySettings(t *testing.T) {
	svc, _, companies := newVisibilityFixture()
	delete(companies.settings, "c1")

	report, err := svc.ResolveForTrip(context.Background(), "t1", "c2")
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityPrivate, report.Effective.CapacityVisibility)
	assert.False(t, report.Visible)
}

func TestVisibilityService_UnknownTrip(t *testing.T) {
	svc, _, _ := newVisibilityFixture()
	_, err := svc.CanCompanySeeTripCapacity(context.Background(), "nope", "c2")
	assert.Error(t, err)
}
