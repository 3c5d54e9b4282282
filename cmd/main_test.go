package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/pflag"

	app "github.com/okian/saferoute/internal/app"
	"github.com/okian/saferoute/internal/config"
	"github.com/okian/saferoute/internal/domain/types"
	"github.com/okian/saferoute/pkg/logger"
)

const shootings = `{"type":"FeatureCollection","features":[
  {"type":"Feature","geometry":{"type":"Point","coordinates":[-79.0,43.0]},"properties":{"category":"Shootings"}}
]}`

const routesFile = `{"type":"FeatureCollection","features":[
  {"type":"Feature","geometry":{"type":"LineString","coordinates":[[-79.001,43.0],[-78.999,43.0]]},"properties":{"distance":163,"duration":120}},
  {"type":"Feature","geometry":{"type":"LineString","coordinates":[[-80.001,44.0],[-79.999,44.0]]},"properties":{}}
]}`

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// writeTestConfig writes a data directory and a config file using it, and
// points SAFEROUTE_CONFIG at it for the duration of the test.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"shootings.json": shootings,
		"routes.geojson": routesFile,
		"config.yaml": `log_level: error
data_dir: ` + dir + `
categories:
  Shootings:
    radius_meters: 300
    weight: 2
    file: shootings.json
`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv(config.EnvConfig, filepath.Join(dir, "config.yaml"))
	return dir
}

// execute runs the root command with flags reset, since cobra keeps flag
// values between executions.
func execute(args ...string) (string, error) {
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		names := make(map[string]bool)
		for _, c := range rootCmd.Commands() {
			names[c.Name()] = true
		}

		convey.Convey("Then every subcommand is registered", func() {
			for _, name := range []string{"serve", "point", "route"} {
				convey.So(names[name], convey.ShouldBeTrue)
			}
			convey.So(rootCmd.Use, convey.ShouldEqual, "saferoute")
		})

		convey.Convey("And route defaults to driving", func() {
			flag := routeCmd.Flags().Lookup("mode")
			convey.So(flag, convey.ShouldNotBeNil)
			convey.So(flag.DefValue, convey.ShouldEqual, "driving")
		})
	})
}

func TestPointCommand(t *testing.T) {
	convey.Convey("Given a config over a one-incident data directory", t, func() {
		writeTestConfig(t)

		convey.Convey("When scoring the incident location", func() {
			out, err := execute("point", "--lat", "43.0", "--lng", "-79.0")

			convey.Convey("Then the score is printed as JSON", func() {
				convey.So(err, convey.ShouldBeNil)
				var res types.PointRisk
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.RiskScore, convey.ShouldEqual, 3)
				convey.So(res.Degraded, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the latitude is out of range", func() {
			_, err := execute("point", "--lat", "200", "--lng", "-79.0")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRouteCommand(t *testing.T) {
	convey.Convey("Given a config and a GeoJSON file of routes", t, func() {
		dir := writeTestConfig(t)

		convey.Convey("When scoring the file", func() {
			out, err := execute("route", "--file", filepath.Join(dir, "routes.geojson"))

			convey.Convey("Then both routes are scored in order", func() {
				convey.So(err, convey.ShouldBeNil)
				var res types.RouteRisk
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(len(res.Routes), convey.ShouldEqual, 2)
				convey.So(*res.Routes[0].RiskScore, convey.ShouldBeGreaterThan, 0)
				convey.So(res.Routes[0].Distance, convey.ShouldEqual, 163)
				convey.So(*res.Routes[1].RiskScore, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := execute("route", "--file", filepath.Join(dir, "missing.geojson"))
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When no routing provider is configured", func() {
			_, err := execute("route", "--origin", "43.0,-79.0", "--destination", "43.01,-79.01")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestServeHandler(t *testing.T) {
	convey.Convey("Given a started service and the serve handler", t, func() {
		writeTestConfig(t)
		ctx := context.Background()
		c, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc, err := app.NewFromConfig(ctx, c, app.WithLogger(logger.Nop()))
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, c, svc)

		convey.Convey("Then the API, docs and probes are routed", func() {
			for path, want := range map[string]int{
				"/healthz":                       http.StatusOK,
				"/readyz":                        http.StatusOK,
				"/stats":                         http.StatusOK,
				"/metrics":                       http.StatusOK,
				"/openapi.yaml":                  http.StatusOK,
				"/api-docs":                      http.StatusOK,
				"/v1/risk/point?lat=43&lng=-79":  http.StatusOK,
				"/v1/risk/point?lat=200&lng=-79": http.StatusBadRequest,
			} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, want)
			}
		})

		convey.Convey("And route queries without a provider are upstream errors", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/risk/route?origin=43,-79&destination=43.01,-79.01", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadGateway)
		})
	})
}
