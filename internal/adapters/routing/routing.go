// Package routing fetches candidate routes from an external directions
// provider.
package routing

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/okian/saferoute/internal/domain/model"
)

// Provider returns alternative routes between two points. Failures are
// *model.UpstreamError.
type Provider interface {
	Routes(ctx context.Context, origin, destination orb.Point, mode model.Mode) ([]model.RouteCandidate, error)
}
