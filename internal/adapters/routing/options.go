package routing

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Option applies a configuration option to the Mapbox client.
type Option func(*Mapbox)

// WithHTTPClient sets the HTTP client. Its Timeout bounds each request.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Mapbox) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithBaseURL overrides the API root, e.g. for tests.
func WithBaseURL(base string) Option {
	return func(m *Mapbox) {
		if base != "" {
			m.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative means
// unlimited.
func WithRateLimit(rps float64) Option {
	return func(m *Mapbox) {
		if rps <= 0 {
			m.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		m.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}
