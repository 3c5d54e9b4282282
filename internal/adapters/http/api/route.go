package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/logger"
)

const (
	defaultMode  = model.ModeDriving
	maxBodyBytes = 4 << 20
)

// RouteHandler handles route risk queries.
type RouteHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRouteHandler creates a new route risk handler.
func NewRouteHandler(deps Dependencies, log logger.Logger) *RouteHandler {
	return &RouteHandler{deps: deps, logger: log}
}

// HandleRoute handles GET /v1/risk/route?origin=lat,lng&destination=lat,lng&mode=.
// Mode defaults to driving.
func (h *RouteHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	origin, err := model.ParseLatLng("origin", q.Get("origin"))
	if err != nil {
		writeServiceError(ctx, w, h.logger, "route", err)
		return
	}
	destination, err := model.ParseLatLng("destination", q.Get("destination"))
	if err != nil {
		writeServiceError(ctx, w, h.logger, "route", err)
		return
	}
	mode := defaultMode
	if raw := q.Get("mode"); raw != "" {
		if mode, err = model.ParseMode(raw); err != nil {
			writeServiceError(ctx, w, h.logger, "route", err)
			return
		}
	}

	res, err := h.deps.RouteRisk(ctx, origin, destination, mode)
	if err != nil {
		writeServiceError(ctx, w, h.logger, "route", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// routeRequest mirrors the OpenAPI schema for POST /v1/risk/routes.
type routeRequest struct {
	Routes []routeInput `json:"routes"`
}

type routeInput struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
}

func (in routeRequest) candidates() ([]model.RouteCandidate, error) {
	out := make([]model.RouteCandidate, len(in.Routes))
	for i, rt := range in.Routes {
		if rt.Geometry == nil || rt.Geometry.Coordinates == nil {
			return nil, model.NewValidationError(fmt.Sprintf("routes[%d].geometry", i), "missing")
		}
		ls, ok := rt.Geometry.Coordinates.(orb.LineString)
		if !ok {
			return nil, model.NewValidationError(fmt.Sprintf("routes[%d].geometry", i),
				"expected LineString, got %s", rt.Geometry.Coordinates.GeoJSONType())
		}
		out[i] = model.RouteCandidate{
			Geometry:        ls,
			DistanceMeters:  rt.Distance,
			DurationSeconds: rt.Duration,
		}
	}
	return out, nil
}

// HandleScoreRoutes handles POST /v1/risk/routes: scores caller supplied
// route geometries without calling the routing provider.
func (h *RouteHandler) HandleScoreRoutes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req routeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = ErrBodyTooLong
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeServiceError(ctx, w, h.logger, "route", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	candidates, err := req.candidates()
	if err != nil {
		writeServiceError(ctx, w, h.logger, "route", err)
		return
	}
	res, err := h.deps.ScoreRoutes(ctx, candidates)
	if err != nil {
		writeServiceError(ctx, w, h.logger, "route", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
