// Package geo provides geographic utility functions for load matching.
//
// Distances are great-circle distances on the S2 sphere, reported in miles.
// They understate road miles; callers treat them as a consistent proxy, not
// as routed distances.
package geo

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/shiva/backhaul/internal/model"
)

// ─── Constants ──────────────────────────────────────────────

const (
	// EarthRadiusMiles is the mean radius of Earth in statute miles.
	EarthRadiusMiles = 3958.8

	// EarthRadiusKm is the mean radius of Earth in kilometers.
	EarthRadiusKm = 6371.0
)

// ─── Distance ───────────────────────────────────────────────

// DistanceMiles returns the great-circle distance between two points in miles.
//
// Complexity: O(1)
func DistanceMiles(a, b model.Coordinates) float64 {
	return angle(a, b) * EarthRadiusMiles
}

// DistanceKm returns the great-circle distance between two points in kilometers.
func DistanceKm(a, b model.Coordinates) float64 {
	return angle(a, b) * EarthRadiusKm
}

func angle(a, b model.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians()
}

// ─── Route Calculations ─────────────────────────────────────

// RouteDistanceMiles returns the total distance of an ordered route in miles.
//
// Complexity: O(S) where S = number of stops.
func RouteDistanceMiles(route []model.Coordinates) float64 {
	total := 0.0
	for i := 0; i < len(route)-1; i++ {
		total += DistanceMiles(route[i], route[i+1])
	}
	return total
}

// AddedMiles returns the extra distance incurred by travelling
// start → via → end instead of start → end. The result is never negative;
// floating-point noise for a via point on the great circle is clamped to 0.
//
// Complexity: O(1)
func AddedMiles(start, end, via model.Coordinates) float64 {
	direct := DistanceMiles(start, end)
	detour := DistanceMiles(start, via) + DistanceMiles(via, end)
	return math.Max(0, detour-direct)
}

// ─── Rounding ───────────────────────────────────────────────

// Round rounds x to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
