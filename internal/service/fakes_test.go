package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/internal/repository"
)

// ─── In-memory collaborators ────────────────────────────────

type fakeTrips struct {
	trips    map[string]model.Trip
	drivers  map[string]model.Driver
	trailers map[string]model.Trailer
	loads    map[string][]model.TripLoad
	loadsErr error
}

func (f *fakeTrips) GetTripForOwner(_ context.Context, tripID, ownerID string) (*model.Trip, error) {
	t, ok := f.trips[tripID]
	if !ok || t.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTrips) GetTrip(_ context.Context, tripID string) (*model.Trip, error) {
	t, ok := f.trips[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTrips) GetDriver(_ context.Context, id string) (*model.Driver, error) {
	d, ok := f.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (f *fakeTrips) GetTrailer(_ context.Context, id string) (*model.Trailer, error) {
	t, ok := f.trailers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTrips) ListTripLoads(_ context.Context, tripID string) ([]model.TripLoad, error) {
	if f.loadsErr != nil {
		return nil, f.loadsErr
	}
	return f.loads[tripID], nil
}

type fakeLoads struct {
	loads       []model.MarketplaceLoad
	err         error
	gotOwner    string
	gotFromDate time.Time
}

func (f *fakeLoads) ListPostedLoads(_ context.Context, excludeOwnerID string, from time.Time) ([]model.MarketplaceLoad, error) {
	f.gotOwner, f.gotFromDate = excludeOwnerID, from
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.MarketplaceLoad, 0, len(f.loads))
	for _, l := range f.loads {
		if l.OwnerID != excludeOwnerID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakePartners struct {
	ids map[string][]string
	err error
}

func (f *fakePartners) ListActivePartnerIDs(_ context.Context, companyID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids[companyID], nil
}

type fakeSuggestions struct {
	mu    sync.Mutex
	rows  map[string]model.SuggestionRecord
	calls int
	err   error
}

func newFakeSuggestions() *fakeSuggestions {
	return &fakeSuggestions{rows: map[string]model.SuggestionRecord{}}
}

func (f *fakeSuggestions) UpsertSuggestions(_ context.Context, rows []model.SuggestionRecord) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	for _, r := range rows {
		key := r.TripID + "/" + r.LoadID
		if prev, ok := f.rows[key]; ok {
			r.ID = prev.ID
		} else {
			r.ID = key
		}
		f.rows[key] = r
	}
	return len(rows), nil
}

func (f *fakeSuggestions) ListActive(_ context.Context, tripID string, now time.Time) ([]model.SuggestionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SuggestionRecord
	for _, r := range f.rows {
		if r.TripID == tripID && r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSuggestions) UpdateStatus(_ context.Context, id string, status model.SuggestionStatus) (*model.SuggestionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, r := range f.rows {
		if r.ID == id {
			r.Status = status
			f.rows[k] = r
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeCompanies struct {
	settings map[string]model.CompanySettings
}

func (f *fakeCompanies) GetCompanySettings(_ context.Context, companyID string) (*model.CompanySettings, error) {
	s, ok := f.settings[companyID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

// visibilityStore joins the trip and company fakes.
type visibilityStore struct {
	*fakeTrips
	*fakeCompanies
}

// fakeGeo resolves addresses from a fixed gazetteer keyed by city. Points
// live on a grid measured in miles; distance is Manhattan so expected
// values are exact.
type fakeGeo struct {
	mu     sync.Mutex
	places map[string]model.Coordinates
	calls  int
}

func (f *fakeGeo) Geocode(_ context.Context, addr model.Address) (model.Coordinates, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	c, ok := f.places[addr.City]
	return c, ok
}

func (f *fakeGeo) Distance(a, b model.Coordinates) float64 {
	return math.Abs(a.Lat-b.Lat) + math.Abs(a.Lng-b.Lng)
}

func (f *fakeGeo) AddedMiles(start, end, via model.Coordinates) float64 {
	return max(0, f.Distance(start, via)+f.Distance(via, end)-f.Distance(start, end))
}

var errStorage = errors.New("storage unavailable")
