package worker

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrStopped    = errors.New("worker pool stopped")
	ErrNotStarted = errors.New("worker pool not started")
)
