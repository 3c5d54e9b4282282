package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/adapters/routing"
	"github.com/okian/saferoute/internal/adapters/source"
	"github.com/okian/saferoute/internal/config"
	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/internal/domain/sampling"
	"github.com/okian/saferoute/internal/domain/scoring"
)

// NewFromConfig builds a Service from process configuration. The Postgres
// source, when selected, is opened here and closed by Stop. extra options
// are applied last.
func NewFromConfig(ctx context.Context, cfg *config.Config, extra ...Option) (*Service, error) {
	src, err := OpenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	kind, err := sampling.ParseKind(cfg.Sampling)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithSource(src),
		WithCategories(Categories(cfg)),
		WithSmoothing(cfg.Smoothing),
		WithSamplingPolicy(sampling.Policy{
			Kind:       kind,
			Count:      cfg.SampleCount,
			StepMeters: cfg.SampleStepMeters,
		}),
		WithWorkerCount(cfg.WorkerCount),
		WithStrictLoad(cfg.StrictLoad),
	}
	if cfg.MapboxToken != "" {
		opts = append(opts, WithProvider(routing.NewMapbox(cfg.MapboxToken,
			routing.WithBaseURL(cfg.MapboxBaseURL),
			routing.WithHTTPClient(&http.Client{Timeout: cfg.RoutingTimeout()}),
			routing.WithRateLimit(cfg.RoutingRPS),
		)))
	}
	return New(append(opts, extra...)...), nil
}

// OpenSource returns the incident source selected by cfg.
func OpenSource(ctx context.Context, cfg *config.Config) (repository.Source, error) {
	if cfg.Source == "postgres" {
		pg, err := source.OpenPostgres(ctx, cfg.PostgresDSN, cfg.PostgresTable)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}

	defaults := source.DefaultFiles()
	files := make(map[model.Category]string, len(cfg.Categories))
	for name, cc := range cfg.Categories {
		cat := model.Category(name)
		switch {
		case cc.File != "":
			files[cat] = cc.File
		case defaults[cat] != "":
			files[cat] = defaults[cat]
		default:
			files[cat] = strings.ToLower(name) + ".json"
		}
	}
	return source.NewGeoJSONDir(cfg.DataDir,
		source.WithFiles(files),
		source.WithTimestampProperty(cfg.TimestampProperty),
	), nil
}

// Categories converts the configured category table to scoring parameters.
func Categories(cfg *config.Config) map[model.Category]scoring.CategoryConfig {
	out := make(map[model.Category]scoring.CategoryConfig, len(cfg.Categories))
	for name, cc := range cfg.Categories {
		out[model.Category(name)] = scoring.CategoryConfig{
			RadiusMeters: cc.RadiusMeters,
			Weight:       cc.Weight,
		}
	}
	return out
}
