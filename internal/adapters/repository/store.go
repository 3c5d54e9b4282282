// Package repository holds the incident store: a load-once, read-many cache
// of categorized incident locations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/logger"
	"github.com/okian/saferoute/pkg/metrics"
)

const loadKey = "incidents"

// RawRecord is an incident as read from a source, before validation.
type RawRecord struct {
	Category   string
	Latitude   float64
	Longitude  float64
	OccurredAt time.Time
}

// Source produces raw incident records per category.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	// Categories lists the categories the source can provide.
	Categories(ctx context.Context) ([]model.Category, error)
	// Read returns every record of one category in source order.
	Read(ctx context.Context, category model.Category) ([]RawRecord, error)
}

// Store loads incidents from a Source exactly once and serves the resulting
// Snapshot to every caller. There is no refresh: a restart picks up new data.
type Store struct {
	source   Source
	strict   bool
	required []model.Category
	logger   logger.Logger

	group singleflight.Group
	snap  atomic.Pointer[Snapshot]
	loads atomic.Int64
}

// NewStore creates a Store over source. Nothing is read until Get.
func NewStore(source Source, opts ...Option) *Store {
	s := &Store{
		source: source,
		strict: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("incidents")
	}
	return s
}

// Get returns the cached snapshot, loading it on first use. Concurrent first
// callers share a single load. A failed load is not cached; the next Get
// tries again.
func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}

	ch := s.group.DoChan(loadKey, func() (any, error) {
		if snap := s.snap.Load(); snap != nil {
			return snap, nil
		}
		// The load outlives any single caller: a cancelled first request
		// must not fail the others waiting on the same flight.
		snap, err := s.Load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.snap.Store(snap)
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for incident load: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Loaded reports whether a snapshot is cached.
func (s *Store) Loaded() bool {
	return s.snap.Load() != nil
}

// Loads returns how many times the source has been read.
func (s *Store) Loads() int64 {
	return s.loads.Load()
}

// Load reads and validates every category from the source and assembles a
// snapshot. It does not touch the cache; use Get for that.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	s.loads.Add(1)
	start := time.Now()
	snap, err := s.load(ctx)
	durationMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordIncidentLoad("error", durationMs)
		metrics.RecordErrorByComponent("incidents", "load_error")
		s.logger.Error(ctx, "incident load failed",
			logger.String("source", s.source.Name()),
			logger.Error(err),
		)
		return nil, err
	}

	metrics.RecordIncidentLoad("ok", durationMs)
	metrics.UpdateIncidentsTotal(snap.Len())
	metrics.UpdateUnavailableCategories(len(snap.unavailable))
	for _, cat := range snap.categories {
		metrics.UpdateCategoryIncidents(string(cat), snap.CategoryLen(cat))
	}
	s.logger.Info(ctx, "incidents loaded",
		logger.String("source", s.source.Name()),
		logger.Int("categories", len(snap.categories)),
		logger.Int("incidents", snap.Len()),
		logger.Int("unavailable", len(snap.unavailable)),
		logger.Float64("duration_ms", durationMs),
	)
	return snap, nil
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	name := s.source.Name()
	listed, err := s.source.Categories(ctx)
	if err != nil {
		return nil, &model.DataLoadError{Source: name, Index: -1, Err: err}
	}

	incidents := make(map[model.Category][]model.IncidentRecord, len(listed))
	unavailable := make(map[model.Category]error)

	fail := func(cat model.Category, err error) error {
		if s.strict {
			return err
		}
		s.logger.Warn(ctx, "category unavailable",
			logger.String("source", name),
			logger.String("category", string(cat)),
			logger.Error(err),
		)
		unavailable[cat] = err
		return nil
	}

	present := make(map[model.Category]bool, len(listed))
	for _, cat := range listed {
		if err := ctx.Err(); err != nil {
			return nil, &model.DataLoadError{Source: name, Category: cat, Index: -1, Err: err}
		}
		present[cat] = true

		recs, err := s.readCategory(ctx, cat)
		if err != nil {
			if ferr := fail(cat, err); ferr != nil {
				return nil, ferr
			}
			continue
		}
		incidents[cat] = recs
	}

	for _, cat := range s.required {
		if present[cat] {
			continue
		}
		err := &model.DataLoadError{Source: name, Category: cat, Index: -1, Err: ErrCategoryMissing}
		if ferr := fail(cat, err); ferr != nil {
			return nil, ferr
		}
	}

	return newSnapshot(name, incidents, unavailable, time.Now()), nil
}

// readCategory reads one category and validates every record. Any invalid
// record rejects the whole category.
func (s *Store) readCategory(ctx context.Context, cat model.Category) ([]model.IncidentRecord, error) {
	name := s.source.Name()
	raw, err := s.source.Read(ctx, cat)
	if err != nil {
		return nil, &model.DataLoadError{Source: name, Category: cat, Index: -1, Err: err}
	}

	out := make([]model.IncidentRecord, 0, len(raw))
	for i, r := range raw {
		if err := validateRecord(cat, r); err != nil {
			return nil, &model.DataLoadError{Source: name, Category: cat, Index: i, Err: err}
		}
		out = append(out, model.IncidentRecord{
			Category:   cat,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			OccurredAt: r.OccurredAt,
		})
	}
	return out, nil
}

func validateRecord(cat model.Category, r RawRecord) error {
	switch {
	case r.Category == "":
		return ErrMissingCategory
	case model.Category(r.Category) != cat:
		return fmt.Errorf("%w: got %q", ErrCategoryMismatch, r.Category)
	}
	if err := model.ValidateCoordinate(r.Latitude, r.Longitude); err != nil {
		return errors.Join(ErrInvalidCoordinate, err)
	}
	return nil
}
