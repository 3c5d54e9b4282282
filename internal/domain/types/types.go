// Package types contains common types used across the application
package types

import "github.com/paulmach/orb/geojson"

// PointRisk is the read shape of a point risk query.
type PointRisk struct {
	RiskScore             int      `json:"risk_score"`
	Degraded              bool     `json:"degraded"`
	UnavailableCategories []string `json:"unavailable_categories,omitempty"`
}

// RouteResult is one scored (or failed) route candidate.
type RouteResult struct {
	Geometry  *geojson.Geometry `json:"geometry"`
	RiskScore *int              `json:"risk_score"`
	Distance  float64           `json:"distance"` // meters
	Duration  float64           `json:"duration"` // seconds
	Error     string            `json:"error,omitempty"`
}

// RouteRisk is the read shape of a route risk query. Routes keep the order of
// the candidates they were computed from.
type RouteRisk struct {
	RequestID             string        `json:"request_id,omitempty"`
	Routes                []RouteResult `json:"routes"`
	Degraded              bool          `json:"degraded"`
	UnavailableCategories []string      `json:"unavailable_categories,omitempty"`
}

// Failed returns how many routes carry an error instead of a score.
func (r RouteRisk) Failed() int {
	n := 0
	for _, rr := range r.Routes {
		if rr.Error != "" {
			n++
		}
	}
	return n
}
