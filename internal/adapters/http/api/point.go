package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/logger"
)

// PointHandler handles point risk queries.
type PointHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewPointHandler creates a new point risk handler.
func NewPointHandler(deps Dependencies, log logger.Logger) *PointHandler {
	return &PointHandler{deps: deps, logger: log}
}

// HandlePoint handles GET /v1/risk/point?lat=&lng=[&since=] requests.
func (h *PointHandler) HandlePoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	lat, err := parseFloat(q.Get("lat"), "lat")
	if err != nil {
		writeServiceError(ctx, w, h.logger, "point", err)
		return
	}
	lng, err := parseFloat(q.Get("lng"), "lng")
	if err != nil {
		writeServiceError(ctx, w, h.logger, "point", err)
		return
	}
	since, err := parseSince(q.Get("since"))
	if err != nil {
		writeServiceError(ctx, w, h.logger, "point", err)
		return
	}

	res, err := h.deps.PointRisk(ctx, lat, lng, since)
	if err != nil {
		writeServiceError(ctx, w, h.logger, "point", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func parseFloat(s, field string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, model.NewValidationError(field, "missing")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, model.NewValidationError(field, "%q is not a number", s)
	}
	return v, nil
}

func parseSince(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, model.NewValidationError("since", "must be RFC3339")
	}
	return &t, nil
}
