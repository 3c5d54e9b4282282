// Package service provides the risk scoring service that implements the
// dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/adapters/routing"
	"github.com/okian/saferoute/internal/adapters/worker"
	"github.com/okian/saferoute/internal/domain/aggregate"
	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/internal/domain/sampling"
	"github.com/okian/saferoute/internal/domain/scoring"
	"github.com/okian/saferoute/internal/domain/types"
	"github.com/okian/saferoute/pkg/logger"
	"github.com/okian/saferoute/pkg/metrics"
)

const defaultMaxCandidates = 10

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrStopped    = errors.New("service stopped")
	ErrNoSource   = errors.New("no incident source configured")
	ErrNoProvider = errors.New("no routing provider configured")
)

// Service owns the incident store and every scoring component. It is built
// once at startup and shared by all requests.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	source   repository.Source
	provider routing.Provider

	// Core components, built by Start
	store      *repository.Store
	evaluator  *scoring.Evaluator
	pool       *worker.Pool
	aggregator *aggregate.Aggregator

	// Configuration
	categories    map[model.Category]scoring.CategoryConfig
	smoothing     float64
	policy        sampling.Policy
	workerCount   int
	strictLoad    bool
	maxCandidates int

	// State
	started      bool
	stopped      bool // terminal; the source is closed
	startedAt    time.Time
	pointQueries atomic.Int64
	routeQueries atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets the incident source. Required.
func WithSource(src repository.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithProvider sets the routing provider used by RouteRisk.
func WithProvider(p routing.Provider) Option {
	return func(s *Service) {
		s.provider = p
	}
}

// WithCategories sets the category scoring table.
func WithCategories(categories map[model.Category]scoring.CategoryConfig) Option {
	return func(s *Service) {
		if len(categories) > 0 {
			s.categories = categories
		}
	}
}

// WithSmoothing sets the score saturation constant K.
func WithSmoothing(k float64) Option {
	return func(s *Service) {
		s.smoothing = k
	}
}

// WithSamplingPolicy sets how routes are sampled.
func WithSamplingPolicy(p sampling.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithWorkerCount sets the number of point scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithStrictLoad controls whether a failed category aborts startup.
func WithStrictLoad(strict bool) Option {
	return func(s *Service) {
		s.strictLoad = strict
	}
}

// WithMaxCandidates caps how many routes one ScoreRoutes call accepts.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		categories:    scoring.DefaultCategories(),
		smoothing:     scoring.DefaultSmoothing,
		policy:        sampling.DefaultPolicy(),
		workerCount:   runtime.NumCPU(),
		strictLoad:    true,
		maxCandidates: defaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the scoring components and loads the incident store. A load
// failure is returned and leaves the service stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.source == nil {
		return ErrNoSource
	}

	s.logger.Info(ctx, "starting risk service...",
		logger.String("source", s.source.Name()),
		logger.String("sampling", s.policy.String()),
	)

	evaluator, err := scoring.New(s.categories, scoring.WithSmoothing(s.smoothing))
	if err != nil {
		return fmt.Errorf("build evaluator: %w", err)
	}

	pool := worker.NewPool(evaluator,
		worker.WithWorkerCount(s.workerCount),
		worker.WithLogger(s.logger.Named("worker")),
	)
	agg, err := aggregate.New(evaluator,
		aggregate.WithPolicy(s.policy),
		aggregate.WithPointScorer(pool),
		aggregate.WithLogger(s.logger.Named("aggregate")),
	)
	if err != nil {
		return fmt.Errorf("build aggregator: %w", err)
	}

	required := make([]model.Category, 0, len(s.categories))
	for cat := range s.categories {
		required = append(required, cat)
	}
	store := repository.NewStore(s.source,
		repository.WithStrict(s.strictLoad),
		repository.WithRequiredCategories(required...),
		repository.WithLogger(s.logger.Named("incidents")),
	)

	snap, err := store.Get(ctx)
	if err != nil {
		return err
	}

	pool.Start(context.WithoutCancel(ctx))

	s.evaluator = evaluator
	s.pool = pool
	s.aggregator = agg
	s.store = store
	s.started = true
	s.startedAt = time.Now()

	if missing := evaluator.Covers(snap); len(missing) > 0 {
		s.logger.Warn(ctx, "serving with unavailable categories; affected scores are flagged degraded",
			logger.Any("categories", missing),
		)
	}
	s.logger.Info(ctx, "risk service started",
		logger.Int("workers", pool.Workers()),
		logger.Int("incidents", snap.Len()),
		logger.Int("categories", len(snap.Categories())),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping risk service...")

	if s.pool != nil {
		s.pool.Stop()
	}
	if closer, ok := s.source.(interface{ Close() }); ok {
		closer.Close()
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "risk service stopped")
}

// Ready reports whether the incident store is loaded and requests can be
// served.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.store != nil && s.store.Loaded()
}

func (s *Service) components() (*repository.Store, *scoring.Evaluator, *aggregate.Aggregator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.store, s.evaluator, s.aggregator, nil
}

// PointRisk scores one location. When since is set only incidents at or
// after it count.
func (s *Service) PointRisk(ctx context.Context, lat, lng float64, since *time.Time) (types.PointRisk, error) {
	if err := model.ValidateCoordinate(lat, lng); err != nil {
		return types.PointRisk{}, err
	}
	store, evaluator, _, err := s.components()
	if err != nil {
		return types.PointRisk{}, err
	}
	snap, err := store.Get(ctx)
	if err != nil {
		return types.PointRisk{}, err
	}
	if since != nil {
		snap = snap.Since(*since)
	}

	s.pointQueries.Add(1)
	score := evaluator.Score(lat, lng, snap)
	metrics.RecordPointQuery(score)

	unavailable := categoryNames(evaluator.Covers(snap))
	return types.PointRisk{
		RiskScore:             score,
		Degraded:              len(unavailable) > 0,
		UnavailableCategories: unavailable,
	}, nil
}

// RouteRisk fetches candidate routes between origin and destination from the
// routing provider and scores each of them.
func (s *Service) RouteRisk(ctx context.Context, origin, destination orb.Point, mode model.Mode) (types.RouteRisk, error) {
	if err := model.ValidateCoordinate(origin.Lat(), origin.Lon()); err != nil {
		return types.RouteRisk{}, err
	}
	if err := model.ValidateCoordinate(destination.Lat(), destination.Lon()); err != nil {
		return types.RouteRisk{}, err
	}
	if _, err := model.ParseMode(string(mode)); err != nil {
		return types.RouteRisk{}, err
	}
	if s.provider == nil {
		return types.RouteRisk{}, &model.UpstreamError{Provider: "routing", Err: ErrNoProvider}
	}
	store, _, _, err := s.components()
	if err != nil {
		return types.RouteRisk{}, err
	}
	// Load before calling out so an unavailable store costs no upstream quota.
	if _, err := store.Get(ctx); err != nil {
		return types.RouteRisk{}, err
	}

	candidates, err := s.provider.Routes(ctx, origin, destination, mode)
	if err != nil {
		s.logger.Warn(ctx, "routing provider failed", logger.String("mode", string(mode)), logger.Error(err))
		return types.RouteRisk{}, err
	}
	return s.score(ctx, candidates)
}

// ScoreRoutes scores caller-supplied route candidates.
func (s *Service) ScoreRoutes(ctx context.Context, candidates []model.RouteCandidate) (types.RouteRisk, error) {
	switch {
	case len(candidates) == 0:
		return types.RouteRisk{}, model.NewValidationError("routes", "at least one route is required")
	case len(candidates) > s.maxCandidates:
		return types.RouteRisk{}, model.NewValidationError("routes", "at most %d routes are accepted, got %d", s.maxCandidates, len(candidates))
	}
	return s.score(ctx, candidates)
}

func (s *Service) score(ctx context.Context, candidates []model.RouteCandidate) (types.RouteRisk, error) {
	store, evaluator, agg, err := s.components()
	if err != nil {
		return types.RouteRisk{}, err
	}
	snap, err := store.Get(ctx)
	if err != nil {
		return types.RouteRisk{}, err
	}

	s.routeQueries.Add(1)
	outcomes := agg.Score(ctx, snap, candidates)
	if err := ctx.Err(); err != nil {
		return types.RouteRisk{}, err
	}

	unavailable := categoryNames(evaluator.Covers(snap))
	out := types.RouteRisk{
		RequestID:             logger.RequestID(ctx),
		Routes:                make([]types.RouteResult, len(outcomes)),
		Degraded:              len(unavailable) > 0,
		UnavailableCategories: unavailable,
	}
	for i, o := range outcomes {
		c := candidates[i]
		res := types.RouteResult{
			Geometry: geojson.NewGeometry(c.Geometry),
			Distance: c.DistanceMeters,
			Duration: c.DurationSeconds,
		}
		if o.Err != nil {
			res.Error = o.Err.Error()
		} else {
			score := o.Score.RiskScore
			res.RiskScore = &score
		}
		out.Routes[i] = res
	}
	if failed := out.Failed(); failed > 0 {
		s.logger.Warn(ctx, "some route candidates could not be scored",
			logger.Int("failed", failed),
			logger.Int("candidates", len(candidates)),
		)
	}
	return out, nil
}

func categoryNames(cats []model.Category) []string {
	if len(cats) == 0 {
		return nil
	}
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"sampling":     s.policy.String(),
		"smoothing":    s.smoothing,
		"categories":   len(s.categories),
		"pointQueries": s.pointQueries.Load(),
		"routeQueries": s.routeQueries.Load(),
	}
	if s.source != nil {
		stats["source"] = s.source.Name()
	}

	if s.started {
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
		stats["pointsScored"] = s.pool.Processed()
		if snap, err := s.store.Get(context.Background()); err == nil {
			stats["incidents"] = snap.Len()
			stats["loadedAt"] = snap.LoadedAt().UTC().Format(time.RFC3339)
			stats["unavailableCategories"] = categoryNames(snap.Unavailable())
		}
	}
	return stats
}
