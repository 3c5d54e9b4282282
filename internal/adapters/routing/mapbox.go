package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/metrics"
)

const (
	providerName      = "mapbox"
	defaultBaseURL    = "https://api.mapbox.com"
	defaultTimeout    = 10 * time.Second
	defaultRPS        = 5
	maxResponseBytes  = 16 << 20
	mapboxCodeOK      = "Ok"
	coordinatePrecise = 6
)

// ErrNoToken is returned when no access token is configured.
var ErrNoToken = errors.New("mapbox access token not configured")

// Mapbox calls the Mapbox Directions API.
type Mapbox struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewMapbox returns a Directions client authenticated with token.
func NewMapbox(token string, opts ...Option) *Mapbox {
	m := &Mapbox{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(defaultRPS, defaultRPS),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Profile maps a travel mode to its Mapbox routing profile.
func Profile(mode model.Mode) (string, error) {
	switch mode {
	case model.ModeWalking:
		return "walking", nil
	case model.ModeCycling:
		return "cycling", nil
	case model.ModeDriving:
		return "driving-traffic", nil
	default:
		return "", model.NewValidationError("mode", "%q has no routing profile", mode)
	}
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
	} `json:"routes"`
}

// Routes implements Provider.
func (m *Mapbox) Routes(ctx context.Context, origin, destination orb.Point, mode model.Mode) ([]model.RouteCandidate, error) {
	profile, err := Profile(mode)
	if err != nil {
		return nil, err
	}
	if m.token == "" {
		return nil, m.fail(0, ErrNoToken)
	}

	if err := m.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, m.fail(0, eris.Wrap(err, "mapbox: rate limit"))
	}

	start := time.Now()
	candidates, status, err := m.fetch(ctx, profile, origin, destination)
	latencyMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		// The caller gave up; that is not a provider failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.RecordUpstreamRequest(providerName, "cancelled", latencyMs)
			return nil, ctxErr
		}
		metrics.RecordUpstreamRequest(providerName, "error", latencyMs)
		return nil, m.fail(status, err)
	}
	metrics.RecordUpstreamRequest(providerName, "ok", latencyMs)
	return candidates, nil
}

func (m *Mapbox) fetch(ctx context.Context, profile string, origin, destination orb.Point) ([]model.RouteCandidate, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.directionsURL(profile, origin, destination), nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "mapbox: build request")
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "mapbox: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "mapbox: read body")
	}

	var dr directionsResponse
	if resp.StatusCode != http.StatusOK {
		_ = json.Unmarshal(body, &dr)
		if dr.Message != "" {
			return nil, resp.StatusCode, eris.Errorf("mapbox: status %d: %s", resp.StatusCode, dr.Message)
		}
		return nil, resp.StatusCode, eris.Errorf("mapbox: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "mapbox: parse response")
	}
	if dr.Code != mapboxCodeOK {
		return nil, resp.StatusCode, eris.Errorf("mapbox: code %q: %s", dr.Code, dr.Message)
	}

	out := make([]model.RouteCandidate, 0, len(dr.Routes))
	for i, r := range dr.Routes {
		g, err := geojson.UnmarshalGeometry(r.Geometry)
		if err != nil {
			return nil, resp.StatusCode, eris.Wrapf(err, "mapbox: route %d geometry", i)
		}
		// Short or odd geometries are passed through as empty lines; the
		// aggregator rejects them per route.
		ls, _ := g.Geometry().(orb.LineString)
		out = append(out, model.RouteCandidate{
			Geometry:        ls,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
		})
	}
	return out, resp.StatusCode, nil
}

func (m *Mapbox) directionsURL(profile string, origin, destination orb.Point) string {
	coords := formatCoord(origin) + ";" + formatCoord(destination)
	params := url.Values{
		"alternatives": {"true"},
		"geometries":   {"geojson"},
		"overview":     {"full"},
		"access_token": {m.token},
	}
	return fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s", m.baseURL, profile, coords, params.Encode())
}

func formatCoord(p orb.Point) string {
	return strconv.FormatFloat(p.Lon(), 'f', coordinatePrecise, 64) + "," +
		strconv.FormatFloat(p.Lat(), 'f', coordinatePrecise, 64)
}

func (m *Mapbox) fail(status int, err error) error {
	metrics.RecordErrorByComponent("routing", "upstream_error")
	return &model.UpstreamError{Provider: providerName, StatusCode: status, Err: err}
}
