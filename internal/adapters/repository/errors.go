package repository

import "errors"

// Sentinel kinds for incident record validation. They are wrapped in a
// model.DataLoadError naming the source, category and record.
var (
	ErrMissingCategory   = errors.New("record has no category")
	ErrCategoryMismatch  = errors.New("record category does not match requested category")
	ErrInvalidCoordinate = errors.New("record coordinate is not a finite in-range latitude/longitude")
	ErrCategoryMissing   = errors.New("category not provided by source")
)
