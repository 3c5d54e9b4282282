package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "saferoute")
				So(manager.subsystem, ShouldEqual, "risk")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})

			Convey("And the constant labels should be exported", func() {
				manager.pointQueries.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() != "test_namespace_test_subsystem_point_queries_total" {
						continue
					}
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "saferoute")
				So(manager.subsystem, ShouldEqual, "risk")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording point queries", func() {
			before := testutil.ToFloat64(globalManager.pointQueries)
			RecordPointQuery(42)
			So(testutil.ToFloat64(globalManager.pointQueries), ShouldEqual, before+1)
		})

		Convey("When recording route outcomes", func() {
			before := testutil.ToFloat64(globalManager.routeCandidatesScored)
			RecordRouteScored(12.5)
			RecordRouteFailure("invalid_geometry")
			So(testutil.ToFloat64(globalManager.routeCandidatesScored), ShouldEqual, before+1)
			So(testutil.ToFloat64(globalManager.routeCandidateFailures.WithLabelValues("invalid_geometry")), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("When recording sample points", func() {
			before := testutil.ToFloat64(globalManager.samplePointsScored)
			RecordSamplePoints(76)
			So(testutil.ToFloat64(globalManager.samplePointsScored), ShouldEqual, before+76)
		})

		Convey("When updating incident gauges", func() {
			UpdateCategoryIncidents("Shootings", 12)
			UpdateIncidentsTotal(40)
			UpdateUnavailableCategories(1)
			RecordIncidentLoad("ok", 3)
			So(testutil.ToFloat64(globalManager.incidentsPerCategory.WithLabelValues("Shootings")), ShouldEqual, 12)
			So(testutil.ToFloat64(globalManager.incidentsTotal), ShouldEqual, 40)
			So(testutil.ToFloat64(globalManager.unavailableCategories), ShouldEqual, 1)
		})

		Convey("When recording the remaining families", func() {
			So(func() {
				RecordUpstreamRequest("mapbox", "ok", 120)
				RecordHTTPRequest("point", "GET", "200")
				RecordHTTPRequestDuration("point", "GET", "200", 1.5)
				UpdateWorkerActiveCount(4)
				UpdateWorkerQueuedJobs(0)
				RecordWorkerJobLatency(0.2)
				RecordErrorByComponent("aggregate", "invalid_geometry")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("route", "GET", "client_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		registry := GetRegistry()
		So(registry, ShouldNotBeNil)

		Convey("Then it exposes saferoute metrics only", func() {
			RecordPointQuery(1)
			families, err := registry.Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "saferoute_risk_"), ShouldBeTrue)
			}
		})
	})
}
