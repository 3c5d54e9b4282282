package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	app "github.com/okian/saferoute/internal/app"
	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/pkg/logger"
)

var pointCmd = &cobra.Command{
	Use:   "point",
	Short: "Score one location",
	Long: `Loads incident data and prints the risk score of one location as JSON.

Examples:
  saferoute point --lat 43.65 --lng -79.38
  saferoute point --lat 43.65 --lng -79.38 --since 2024-01-01T00:00:00Z`,
	RunE: runPoint,
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Score candidate routes",
	Long: `Scores routes between two points using the routing provider, or the
LineString features of a GeoJSON file when --file is given.

Examples:
  saferoute route --origin 43.65,-79.38 --destination 43.66,-79.39 --mode walking
  saferoute route --file routes.geojson`,
	RunE: runRoute,
}

func init() {
	pf := pointCmd.Flags()
	pf.Float64("lat", 0, "latitude")
	pf.Float64("lng", 0, "longitude")
	pf.String("since", "", "only count incidents at or after this RFC 3339 time")
	_ = pointCmd.MarkFlagRequired("lat")
	_ = pointCmd.MarkFlagRequired("lng")

	rf := routeCmd.Flags()
	rf.String("origin", "", `origin as "lat,lng"`)
	rf.String("destination", "", `destination as "lat,lng"`)
	rf.String("mode", string(model.ModeDriving), "walking, cycling or driving")
	rf.String("file", "", "GeoJSON file of LineString features to score instead of calling the provider")
	routeCmd.MarkFlagsRequiredTogether("origin", "destination")
	routeCmd.MarkFlagsMutuallyExclusive("origin", "file")

	rootCmd.AddCommand(pointCmd, routeCmd)
}

func startService(ctx context.Context) (*app.Service, error) {
	svc, err := app.NewFromConfig(ctx, cfg, app.WithLogger(logger.Get().Named("service")))
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func runPoint(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	lat, _ := f.GetFloat64("lat")
	lng, _ := f.GetFloat64("lng")

	var since *time.Time
	if s, _ := f.GetString("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return model.NewValidationError("since", "must be RFC3339")
		}
		since = &t
	}

	svc, err := startService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	res, err := svc.PointRisk(ctx, lat, lng, since)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runRoute(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()

	if path, _ := f.GetString("file"); path != "" {
		candidates, err := readCandidates(path)
		if err != nil {
			return err
		}
		svc, err := startService(ctx)
		if err != nil {
			return err
		}
		defer svc.Stop()

		res, err := svc.ScoreRoutes(ctx, candidates)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	}

	rawOrigin, _ := f.GetString("origin")
	rawDest, _ := f.GetString("destination")
	rawMode, _ := f.GetString("mode")
	origin, err := model.ParseLatLng("origin", rawOrigin)
	if err != nil {
		return err
	}
	destination, err := model.ParseLatLng("destination", rawDest)
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(rawMode)
	if err != nil {
		return err
	}

	svc, err := startService(ctx)
	if err != nil {
		return err
	}
	defer svc.Stop()

	res, err := svc.RouteRisk(ctx, origin, destination, mode)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

// readCandidates reads LineString features from a GeoJSON FeatureCollection.
// "distance" and "duration" properties are carried through when present.
func readCandidates(path string) ([]model.RouteCandidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}

	out := make([]model.RouteCandidate, 0, len(fc.Features))
	for i, feat := range fc.Features {
		ls, ok := feat.Geometry.(orb.LineString)
		if !ok {
			return nil, model.NewValidationError(fmt.Sprintf("features[%d]", i), "expected LineString")
		}
		out = append(out, model.RouteCandidate{
			Geometry:        ls,
			DistanceMeters:  feat.Properties.MustFloat64("distance", 0),
			DurationSeconds: feat.Properties.MustFloat64("duration", 0),
		})
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
