package model

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// coordinate carries the range rules for a WGS84 position. NaN and ±Inf fail
// every comparison and are therefore rejected as well.
type coordinate struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lng float64 `validate:"gte=-180,lte=180"`
}

// ValidateCoordinate checks that lat and lng are finite and in range.
func ValidateCoordinate(lat, lng float64) error {
	err := validate.Struct(coordinate{Lat: lat, Lng: lng})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Lat":
			return NewValidationError("latitude", "%v is outside [-90, 90]", lat)
		case "Lng":
			return NewValidationError("longitude", "%v is outside [-180, 180]", lng)
		}
	}
	return NewValidationError("coordinate", "%v", err)
}

// NewPoint validates lat/lng and returns them as an orb point (lng, lat).
func NewPoint(lat, lng float64) (orb.Point, error) {
	if err := ValidateCoordinate(lat, lng); err != nil {
		return orb.Point{}, err
	}
	return orb.Point{lng, lat}, nil
}

// ParseLatLng parses "lat,lng" into a validated point. field names the input
// in the returned ValidationError.
func ParseLatLng(field, s string) (orb.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return orb.Point{}, NewValidationError(field, "expected \"lat,lng\"")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, NewValidationError(field, "latitude is not a number")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, NewValidationError(field, "longitude is not a number")
	}
	p, err := NewPoint(lat, lng)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return orb.Point{}, NewValidationError(field, "%s", verr.Error())
		}
		return orb.Point{}, err
	}
	return p, nil
}
