// Package sampling places points along a route by arc length.
package sampling

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/okian/saferoute/internal/domain/geo"
	"github.com/okian/saferoute/internal/domain/model"
)

// Kind selects how sample positions are spaced.
type Kind string

const (
	// FixedCount emits Count+1 points at equal arc-length fractions.
	FixedCount Kind = "count"
	// FixedInterval emits a point every StepMeters plus the route end.
	FixedInterval Kind = "interval"
)

const (
	DefaultCount      = 75
	DefaultStepMeters = 50.0
	// maxSamples bounds a single route so a tiny step on a long route
	// cannot allocate without limit.
	maxSamples = 100_000
)

// ErrTooManySamples marks a route that would need more than maxSamples
// points under the interval policy.
var ErrTooManySamples = fmt.Errorf("route needs more than %d sample points", maxSamples)

// Policy describes how a route is sampled.
type Policy struct {
	Kind       Kind
	Count      int
	StepMeters float64
}

// DefaultPolicy returns fixed count sampling with DefaultCount intervals.
func DefaultPolicy() Policy {
	return Policy{Kind: FixedCount, Count: DefaultCount, StepMeters: DefaultStepMeters}
}

// ParseKind accepts "count" or "interval".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case FixedCount, FixedInterval:
		return Kind(s), nil
	default:
		return "", model.NewValidationError("sampling", "unsupported policy %q", s)
	}
}

// Validate reports whether the policy can be used.
func (p Policy) Validate() error {
	switch p.Kind {
	case FixedCount:
		if p.Count < 1 || p.Count > maxSamples {
			return model.NewValidationError("sample_count", "must be in [1,%d], got %d", maxSamples, p.Count)
		}
	case FixedInterval:
		if !(p.StepMeters > 0) || math.IsInf(p.StepMeters, 0) {
			return model.NewValidationError("sample_step_meters", "must be positive, got %v", p.StepMeters)
		}
	default:
		return model.NewValidationError("sampling", "unsupported policy %q", p.Kind)
	}
	return nil
}

func (p Policy) String() string {
	if p.Kind == FixedInterval {
		return fmt.Sprintf("interval(%gm)", p.StepMeters)
	}
	return fmt.Sprintf("count(%d)", p.Count)
}

// Sample returns points along ls in travel order. It is a pure function of
// its arguments. Lines with fewer than two vertices are rejected.
func Sample(ls orb.LineString, p Policy) ([]orb.Point, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(ls) < 2 {
		return nil, &model.ValidationError{
			Field:  "geometry",
			Reason: fmt.Sprintf("need at least 2 vertices, got %d", len(ls)),
			Err:    model.ErrInvalidGeometry,
		}
	}
	for i, pt := range ls {
		if err := model.ValidateCoordinate(pt.Lat(), pt.Lon()); err != nil {
			return nil, &model.ValidationError{
				Field:  "geometry",
				Reason: fmt.Sprintf("vertex %d: %v", i, err),
				Err:    model.ErrInvalidGeometry,
			}
		}
	}

	cum := geo.CumulativeLengths(ls)
	total := cum[len(cum)-1]

	var offsets []float64
	switch p.Kind {
	case FixedInterval:
		if need := math.Ceil(total/p.StepMeters) + 1; need > maxSamples {
			return nil, &model.ValidationError{
				Field:  "geometry",
				Reason: fmt.Sprintf("%.0fm at a %gm step needs %.0f points, limit %d", total, p.StepMeters, need, maxSamples),
				Err:    ErrTooManySamples,
			}
		}
		offsets = intervalOffsets(total, p.StepMeters)
	default:
		offsets = countOffsets(total, p.Count)
	}

	out := make([]orb.Point, len(offsets))
	seg := 0
	for i, target := range offsets {
		for seg < len(cum)-2 && cum[seg+1] < target {
			seg++
		}
		out[i] = locate(ls, cum, seg, target)
	}
	// Endpoints are exact, not interpolated.
	out[0] = ls[0]
	out[len(out)-1] = ls[len(ls)-1]
	return out, nil
}

func countOffsets(total float64, n int) []float64 {
	offsets := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		offsets[i] = total * float64(i) / float64(n)
	}
	return offsets
}

func intervalOffsets(total, step float64) []float64 {
	if total == 0 {
		return []float64{0, 0}
	}
	n := int(math.Floor(total / step))
	offsets := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		offsets = append(offsets, float64(i)*step)
	}
	if offsets[len(offsets)-1] < total {
		offsets = append(offsets, total)
	}
	return offsets
}

// locate interpolates the point at distance target, which lies on segment
// seg (between vertices seg and seg+1).
func locate(ls orb.LineString, cum []float64, seg int, target float64) orb.Point {
	segLen := cum[seg+1] - cum[seg]
	if segLen == 0 {
		return ls[seg]
	}
	t := (target - cum[seg]) / segLen
	t = math.Max(0, math.Min(1, t))
	return geo.Interpolate(ls[seg], ls[seg+1], t)
}
