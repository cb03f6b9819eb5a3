package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"googlemaps.github.io/maps"

	"github.com/shiva/backhaul/internal/model"
)

func TestBuildRequest_Components(t *testing.T) {
	req := buildRequest(model.Address{City: " Tulsa ", State: "OK", Zip: "74103"}, "US")

	assert.Equal(t, "Tulsa, OK, 74103", req.Address)
	assert.Equal(t, "us", req.Region)
	assert.Equal(t, "Tulsa", req.Components[maps.ComponentLocality])
	assert.Equal(t, "OK", req.Components[maps.ComponentAdministrativeArea])
	assert.Equal(t, "74103", req.Components[maps.ComponentPostalCode])
	assert.Equal(t, "US", req.Components[maps.ComponentCountry])
}

func TestBuildRequest_SkipsBlankParts(t *testing.T) {
	req := buildRequest(model.Address{Zip: "74103"}, "")

	assert.Equal(t, "74103", req.Address)
	assert.Len(t, req.Components, 1)
	assert.NotContains(t, req.Components, maps.ComponentLocality)
}
