package model

import (
	"strings"

	"github.com/paulmach/orb"
)

// Mode is the travel mode of a route query.
type Mode string

// Supported travel modes.
const (
	ModeWalking Mode = "walking"
	ModeCycling Mode = "cycling"
	ModeDriving Mode = "driving"
)

// Modes lists every supported travel mode.
func Modes() []Mode {
	return []Mode{ModeWalking, ModeCycling, ModeDriving}
}

// ParseMode parses a travel mode case-insensitively. The Mapbox profile name
// "driving-traffic" is accepted for driving.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeWalking, ModeCycling, ModeDriving:
		return m, nil
	case "driving-traffic":
		return ModeDriving, nil
	case "":
		return "", NewValidationError("mode", "missing")
	default:
		return "", NewValidationError("mode", "%q is not one of walking, cycling, driving", s)
	}
}

// RouteCandidate is one alternative path supplied by the routing provider.
// Geometry vertices are (longitude, latitude).
type RouteCandidate struct {
	Geometry        orb.LineString
	DistanceMeters  float64
	DurationSeconds float64
}

// RouteScore is the scored form of a RouteCandidate. Distance and duration are
// copied from the candidate unchanged.
type RouteScore struct {
	Geometry        orb.LineString
	RiskScore       int
	DistanceMeters  float64
	DurationSeconds float64
}
