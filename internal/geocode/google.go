package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"github.com/shiva/backhaul/config"
	"github.com/shiva/backhaul/internal/model"
)

// GoogleGeocoder calls the Google Geocoding API behind a token-bucket limiter.
type GoogleGeocoder struct {
	client  *maps.Client
	limiter *rate.Limiter
	country string
	timeout time.Duration
}

// NewGoogleGeocoder creates a provider from config.
func NewGoogleGeocoder(cfg config.GeocoderConfig) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	rps := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		rps = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &GoogleGeocoder{
		client:  client,
		limiter: rate.NewLimiter(rps, burst),
		country: cfg.Country,
		timeout: cfg.Timeout,
	}, nil
}

// Geocode resolves addr using component filtering so that a bare city name
// cannot match a namesake in another state.
func (g *GoogleGeocoder) Geocode(ctx context.Context, addr model.Address) (model.Coordinates, bool, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return model.Coordinates{}, false, fmt.Errorf("geocode: rate limiter: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	results, err := g.client.Geocode(ctx, buildRequest(addr, g.country))
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return model.Coordinates{}, false, nil
		}
		return model.Coordinates{}, false, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return model.Coordinates{}, false, nil
	}

	loc := results[0].Geometry.Location
	return model.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, true, nil
}

func buildRequest(addr model.Address, country string) *maps.GeocodingRequest {
	components := map[maps.Component]string{}
	if city := strings.TrimSpace(addr.City); city != "" {
		components[maps.ComponentLocality] = city
	}
	if state := strings.TrimSpace(addr.State); state != "" {
		components[maps.ComponentAdministrativeArea] = state
	}
	if zip := strings.TrimSpace(addr.Zip); zip != "" {
		components[maps.ComponentPostalCode] = zip
	}
	if country != "" {
		components[maps.ComponentCountry] = country
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{addr.City, addr.State, addr.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return &maps.GeocodingRequest{
		Address:    strings.Join(parts, ", "),
		Components: components,
		Region:     strings.ToLower(country),
	}
}
