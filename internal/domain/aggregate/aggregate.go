// Package aggregate scores route candidates by averaging the risk at points
// sampled along each route.
package aggregate

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/internal/domain/sampling"
	"github.com/okian/saferoute/internal/domain/scoring"
	"github.com/okian/saferoute/pkg/logger"
	"github.com/okian/saferoute/pkg/metrics"
)

// PointScorer scores a batch of points against one snapshot, returning
// scores in input order.
type PointScorer interface {
	ScoreAll(ctx context.Context, incidents scoring.Incidents, points []orb.Point) ([]int, error)
}

// Outcome is the result for the candidate at Index: exactly one of Score
// and Err is set.
type Outcome struct {
	Index int
	Score *model.RouteScore
	Err   error
}

// Aggregator turns route candidates into route scores.
type Aggregator struct {
	evaluator *scoring.Evaluator
	policy    sampling.Policy
	scorer    PointScorer
	logger    logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithPolicy sets the sampling policy. Validated by New.
func WithPolicy(p sampling.Policy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithPointScorer routes per-sample scoring through s, e.g. a worker pool.
func WithPointScorer(s PointScorer) Option {
	return func(a *Aggregator) {
		if s != nil {
			a.scorer = s
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Aggregator using evaluator for point scores.
func New(evaluator *scoring.Evaluator, opts ...Option) (*Aggregator, error) {
	if evaluator == nil {
		return nil, errors.New("aggregate: nil evaluator")
	}
	a := &Aggregator{
		evaluator: evaluator,
		policy:    sampling.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.policy.Validate(); err != nil {
		return nil, err
	}
	if a.scorer == nil {
		a.scorer = Inline(evaluator)
	}
	if a.logger == nil {
		a.logger = logger.Named("aggregate")
	}
	return a, nil
}

// Policy returns the sampling policy in use.
func (a *Aggregator) Policy() sampling.Policy { return a.policy }

// Score scores every candidate concurrently. The result has one Outcome per
// candidate in input order. A failing candidate never affects the others.
// Once ctx is done no new work starts and unfinished candidates report the
// context error.
func (a *Aggregator) Score(ctx context.Context, incidents scoring.Incidents, candidates []model.RouteCandidate) []Outcome {
	out := make([]Outcome, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(len(candidates))
	for i := range candidates {
		out[i].Index = i
		if err := ctx.Err(); err != nil {
			out[i].Err = &model.CandidateError{Index: i, Err: err}
			continue
		}
		g.Go(func() error {
			start := time.Now()
			score, err := a.scoreOne(ctx, incidents, &candidates[i])
			if err != nil {
				out[i].Err = &model.CandidateError{Index: i, Err: err}
				metrics.RecordRouteFailure(failureReason(err))
				a.logger.Warn(ctx, "route candidate failed",
					logger.Int("route_index", i),
					logger.Error(err),
				)
				return nil
			}
			out[i].Score = score
			metrics.RecordRouteScored(float64(time.Since(start).Microseconds()) / 1000)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Aggregator) scoreOne(ctx context.Context, incidents scoring.Incidents, c *model.RouteCandidate) (*model.RouteScore, error) {
	points, err := sampling.Sample(c.Geometry, a.policy)
	if err != nil {
		return nil, err
	}
	scores, err := a.scorer.ScoreAll(ctx, incidents, points)
	if err != nil {
		return nil, err
	}
	metrics.RecordSamplePoints(len(scores))
	return &model.RouteScore{
		Geometry:        c.Geometry,
		RiskScore:       Mean(scores),
		DistanceMeters:  c.DistanceMeters,
		DurationSeconds: c.DurationSeconds,
	}, nil
}

// Mean is the arithmetic mean of scores rounded to the nearest integer, or 0
// for no scores.
func Mean(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

// Inline returns a PointScorer that scores on the calling goroutine.
func Inline(evaluator *scoring.Evaluator) PointScorer {
	return inlineScorer{evaluator: evaluator}
}

type inlineScorer struct {
	evaluator *scoring.Evaluator
}

// checkEvery is how many points are scored between context checks.
const checkEvery = 16

func (s inlineScorer) ScoreAll(ctx context.Context, incidents scoring.Incidents, points []orb.Point) ([]int, error) {
	out := make([]int, len(points))
	for i, p := range points {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = s.evaluator.Score(p.Lat(), p.Lon(), incidents)
	}
	return out, nil
}
