package source

import "errors"

// Sentinel kinds for source failures. Read errors wrap one of these where
// the cause is structural rather than I/O.
var (
	ErrUnknownCategory = errors.New("category not configured for source")
	ErrNotPoint        = errors.New("feature geometry is not a point")
	ErrInvalidTable    = errors.New("invalid table name")
	ErrBadTimestamp    = errors.New("timestamp property is not RFC 3339")
)
