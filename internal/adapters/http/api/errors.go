package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/logger"
	"github.com/okian/saferoute/pkg/metrics"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrBodyTooLong = errors.New("request body too large")
)

// Error codes returned in the body of failed requests.
const (
	codeBadRequest      = "bad_request"
	codeDataUnavailable = "data_unavailable"
	codeUpstream        = "upstream_error"
	codeTimeout         = "timeout"
	codeUnavailable     = "unavailable"
	codeInternal        = "internal_error"
)

// classify maps a service error onto status, code and a client-safe
// message. Load and internal failures are logged, not echoed: their text
// can carry incident coordinates.
func classify(err error) (status int, code, msg string, retryable bool) {
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, codeBadRequest, err.Error(), false
	case errors.Is(err, model.ErrDataLoad):
		return http.StatusServiceUnavailable, codeDataUnavailable, model.ErrDataLoad.Error(), true
	// Context errors win over upstream ones: a provider call cut short by
	// the request deadline is a timeout, not a bad gateway.
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout, "request timed out", true
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, codeUnavailable, "request cancelled", true
	case errors.Is(err, model.ErrUpstream):
		return http.StatusBadGateway, codeUpstream, model.ErrUpstream.Error(), true
	default:
		return http.StatusInternalServerError, codeInternal, http.StatusText(http.StatusInternalServerError), false
	}
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, component string, err error) {
	status, code, msg, retryable := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
		metrics.RecordErrorByComponent(component, code)
	} else if status != http.StatusBadRequest {
		log.Warn(ctx, "request failed", logger.String("code", code), logger.Error(err))
		metrics.RecordErrorByComponent(component, code)
	}
	writeJSON(w, status, errorResponse{
		Code:      code,
		Message:   msg,
		RequestID: logger.RequestID(ctx),
		Retryable: retryable,
	})
}
