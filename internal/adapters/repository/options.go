package repository

import (
	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithStrict controls whether one failed category fails the whole load
// (true, the default) or is recorded as unavailable in the snapshot.
func WithStrict(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithRequiredCategories lists categories the source must provide. A
// required category missing from the source listing is a load failure for
// that category.
func WithRequiredCategories(categories ...model.Category) Option {
	return func(s *Store) {
		s.required = append([]model.Category(nil), categories...)
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
