// Package scoring computes the risk score of a single location from the
// incidents around it.
package scoring

import (
	"math"
	"sort"

	"github.com/okian/saferoute/internal/domain/geo"
	"github.com/okian/saferoute/internal/domain/model"
)

// Default scoring configuration constants.
const (
	DefaultSmoothing = 75.0
	maxScoreValue    = 100
)

// CategoryConfig is the influence of one incident category: full Weight at
// the incident, decaying linearly to zero at RadiusMeters.
type CategoryConfig struct {
	RadiusMeters float64 `json:"radius_meters"`
	Weight       float64 `json:"weight"`
}

// DefaultCategories returns the stock category table. The returned map is a
// fresh copy.
func DefaultCategories() map[model.Category]CategoryConfig {
	return map[model.Category]CategoryConfig{
		"Shootings":            {RadiusMeters: 300, Weight: 2.0},
		"Homicides":            {RadiusMeters: 400, Weight: 2.0},
		"Assaults":             {RadiusMeters: 200, Weight: 1.7},
		"Robberies":            {RadiusMeters: 200, Weight: 1.2},
		"Auto Thefts":          {RadiusMeters: 300, Weight: 1.0},
		"Motor Vehicle Thefts": {RadiusMeters: 300, Weight: 0.8},
		"Bicycle Thefts":       {RadiusMeters: 200, Weight: 0.4},
		"Property Thefts":      {RadiusMeters: 200, Weight: 0.2},
	}
}

// Incidents is the read side of an incident snapshot.
type Incidents interface {
	Range(fn func(category model.Category, incidents []model.IncidentRecord) bool)
	Unavailable() []model.Category
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithSmoothing sets the saturation constant K. Validated by New.
func WithSmoothing(k float64) Option {
	return func(e *Evaluator) {
		e.smoothing = k
	}
}

// Evaluator scores points against an incident snapshot. It holds no mutable
// state and is safe for concurrent use.
type Evaluator struct {
	categories map[model.Category]CategoryConfig
	smoothing  float64
}

// New validates categories and returns an Evaluator. A nil or empty map
// yields an evaluator that scores every point 0.
func New(categories map[model.Category]CategoryConfig, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		categories: make(map[model.Category]CategoryConfig, len(categories)),
		smoothing:  DefaultSmoothing,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !(e.smoothing > 0) || math.IsInf(e.smoothing, 0) {
		return nil, &ConfigError{Field: "smoothing", Value: e.smoothing}
	}

	for cat, cfg := range categories {
		if !positiveFinite(cfg.RadiusMeters) {
			return nil, &ConfigError{Category: cat, Field: "radius_meters", Value: cfg.RadiusMeters}
		}
		if !positiveFinite(cfg.Weight) {
			return nil, &ConfigError{Category: cat, Field: "weight", Value: cfg.Weight}
		}
		e.categories[cat] = cfg
	}
	return e, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Smoothing returns the saturation constant K.
func (e *Evaluator) Smoothing() float64 { return e.smoothing }

// Categories returns a copy of the configured category table.
func (e *Evaluator) Categories() map[model.Category]CategoryConfig {
	out := make(map[model.Category]CategoryConfig, len(e.categories))
	for k, v := range e.categories {
		out[k] = v
	}
	return out
}

// Raw returns the unbounded sum of every incident contribution at the point.
// Categories not in the configuration are ignored.
func (e *Evaluator) Raw(lat, lng float64, incidents Incidents) float64 {
	if incidents == nil {
		return 0
	}
	var raw float64
	incidents.Range(func(cat model.Category, recs []model.IncidentRecord) bool {
		cfg, ok := e.categories[cat]
		if !ok {
			return true
		}
		for i := range recs {
			d := geo.DistanceLatLng(lat, lng, recs[i].Latitude, recs[i].Longitude)
			raw += Contribution(d, cfg)
		}
		return true
	})
	return raw
}

// Contribution is one incident's share at distance d meters: zero beyond the
// radius, otherwise linear decay from the full weight.
func Contribution(d float64, cfg CategoryConfig) float64 {
	if d > cfg.RadiusMeters {
		return 0
	}
	return cfg.Weight * (1 - d/cfg.RadiusMeters)
}

// Transform maps a raw score onto [0,100] with 100*(1-e^(-raw/K)), rounded.
func (e *Evaluator) Transform(raw float64) int {
	if !(raw > 0) {
		return 0
	}
	scaled := maxScoreValue * (1 - math.Exp(-raw/e.smoothing))
	scaled = math.Max(0, math.Min(maxScoreValue, scaled))
	return int(math.Round(scaled))
}

// Score returns the final risk score in [0,100] for the point.
func (e *Evaluator) Score(lat, lng float64, incidents Incidents) int {
	return e.Transform(e.Raw(lat, lng, incidents))
}

// Covers returns the configured categories the snapshot could not load, in
// name order. A non-empty result means scores from that snapshot understate
// risk.
func (e *Evaluator) Covers(incidents Incidents) []model.Category {
	if incidents == nil {
		return nil
	}
	var missing []model.Category
	for _, cat := range incidents.Unavailable() {
		if _, ok := e.categories[cat]; ok {
			missing = append(missing, cat)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}
