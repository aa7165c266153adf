package geo

import (
	"context"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
)

// ZoneService resolves coordinates to a serviceable zone. backend.Client
// implements it.
type ZoneService interface {
	GetZone(ctx context.Context, lat, lng float64) (*backend.Zone, error)
}

// ZoneValidation is the outcome of a service-area check.
type ZoneValidation struct {
	Valid    bool
	ZoneID   int
	ZoneName string
	Err      string
}

// ValidateServiceableArea checks whether coordinates fall inside a
// serviceable zone. Invalid coordinates and lookup failures both yield
// Valid=false with the error captured for the caller's warning banner.
func ValidateServiceableArea(ctx context.Context, svc ZoneService, lat, lng float64) ZoneValidation {
	if err := ValidateCoordinates(lat, lng); err != nil {
		return ZoneValidation{Err: err.Error()}
	}

	zone, err := svc.GetZone(ctx, lat, lng)
	if err != nil {
		return ZoneValidation{Err: err.Error()}
	}

	return ZoneValidation{Valid: true, ZoneID: zone.ID, ZoneName: zone.Name}
}
