package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/saferoute/internal/domain/types"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRouteRisk(t *testing.T) {
	Convey("Given a route risk with one failed route", t, func() {
		score := 12
		rr := types.RouteRisk{
			RequestID: "req-1",
			Routes: []types.RouteResult{
				{
					Geometry:  geojson.NewGeometry(orb.LineString{{-79.0, 43.0}, {-79.1, 43.1}}),
					RiskScore: &score,
					Distance:  1200,
					Duration:  300,
				},
				{Error: "route 1: invalid geometry"},
			},
		}

		Convey("Then Failed counts only errored routes", func() {
			So(rr.Failed(), ShouldEqual, 1)
		})

		Convey("When encoded as JSON", func() {
			raw, err := json.Marshal(rr)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(raw, &decoded), ShouldBeNil)
			routes := decoded["routes"].([]any)

			Convey("Then the failed route has a null score and an error", func() {
				failed := routes[1].(map[string]any)
				So(failed["risk_score"], ShouldBeNil)
				So(failed["error"], ShouldEqual, "route 1: invalid geometry")
			})

			Convey("And the scored route carries a GeoJSON LineString", func() {
				ok := routes[0].(map[string]any)
				So(ok["risk_score"], ShouldEqual, 12)
				So(ok["geometry"].(map[string]any)["type"], ShouldEqual, "LineString")
				So(ok["distance"], ShouldEqual, 1200)
			})
		})
	})
}

func TestPointRisk(t *testing.T) {
	Convey("Given a healthy point risk", t, func() {
		raw, err := json.Marshal(types.PointRisk{RiskScore: 3})
		So(err, ShouldBeNil)

		Convey("Then unavailable categories are omitted", func() {
			So(string(raw), ShouldEqual, `{"risk_score":3,"degraded":false}`)
		})
	})
}
