package domain

import "context"

// Coordinates is a WGS-84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Geocoder resolves a postal code to coordinates.
type Geocoder interface {
	// Resolve returns ok=false with a nil error when the provider has no match
	// for areaCode. A non-nil error means the lookup itself failed.
	Resolve(ctx context.Context, areaCode string) (coords Coordinates, ok bool, err error)
}
