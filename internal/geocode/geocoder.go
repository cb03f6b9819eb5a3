// Package geocode resolves city/state/postal-code triples to coordinates.
//
// Lookups go through three tiers: an in-process LRU, a shared Redis cache,
// and the rate-limited provider. Concurrent lookups of the same normalized
// key share one provider call.
package geocode

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/shiva/backhaul/internal/model"
	"github.com/shiva/backhaul/pkg/geo"
)

// Geocoder is a forward geocoding source.
//
// found=false with a nil error means the address does not resolve; a non-nil
// error means the lookup itself failed and may succeed on retry.
type Geocoder interface {
	Geocode(ctx context.Context, addr model.Address) (coords model.Coordinates, found bool, err error)
}

// Key normalizes an address into the cache key used by every tier.
func Key(addr model.Address) string {
	city := strings.Join(strings.Fields(strings.ToLower(addr.City)), " ")
	state := strings.ToUpper(strings.TrimSpace(addr.State))
	zip := strings.TrimSpace(addr.Zip)
	if len(zip) > 5 {
		zip = zip[:5]
	}
	return city + "|" + state + "|" + zip
}

// Empty reports whether the address carries nothing to geocode.
func Empty(addr model.Address) bool {
	return strings.TrimSpace(addr.City) == "" && strings.TrimSpace(addr.Zip) == ""
}

// ─── Resolver ───────────────────────────────────────────────

// Resolver is the best-effort geographic collaborator of the matching
// engine. It never returns an error: failures collapse to ok=false.
type Resolver struct {
	geocoder Geocoder
	log      *zap.Logger
}

// NewResolver wraps a Geocoder.
func NewResolver(g Geocoder, log *zap.Logger) *Resolver {
	return &Resolver{geocoder: g, log: log.With(zap.String("component", "geocode"))}
}

// Geocode returns the coordinates for addr, or ok=false when the address is
// empty, unknown, or the lookup failed.
func (r *Resolver) Geocode(ctx context.Context, addr model.Address) (model.Coordinates, bool) {
	if Empty(addr) {
		return model.Coordinates{}, false
	}
	coords, found, err := r.geocoder.Geocode(ctx, addr)
	if err != nil {
		r.log.Warn("geocode failed",
			zap.String("city", addr.City),
			zap.String("state", addr.State),
			zap.String("zip", addr.Zip),
			zap.Error(err))
		return model.Coordinates{}, false
	}
	return coords, found
}

// Distance returns the great-circle distance between a and b in miles.
func (r *Resolver) Distance(a, b model.Coordinates) float64 {
	return geo.DistanceMiles(a, b)
}

// AddedMiles returns the extra miles of routing start → via → end compared to
// start → end.
func (r *Resolver) AddedMiles(start, end, via model.Coordinates) float64 {
	return geo.AddedMiles(start, end, via)
}
