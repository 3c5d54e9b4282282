package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/adapters/source"
	service "github.com/okian/saferoute/internal/app"
	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/internal/domain/scoring"
	"github.com/okian/saferoute/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var testCategories = map[model.Category]scoring.CategoryConfig{
	"Shootings": {RadiusMeters: 300, Weight: 2.0},
	"Assaults":  {RadiusMeters: 200, Weight: 1.7},
}

func memorySource() *source.Memory {
	return source.NewMemory(map[model.Category][]repository.RawRecord{
		"Shootings": {
			{Category: "Shootings", Latitude: 43.0, Longitude: -79.0, OccurredAt: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
		"Assaults": {
			{Category: "Assaults", Latitude: 43.0, Longitude: -79.0, OccurredAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	})
}

func startedService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithSource(memorySource()),
		service.WithCategories(testCategories),
		service.WithWorkerCount(2),
		service.WithLogger(logger.Nop()),
	}
	svc := service.New(append(base, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is not ready until started", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Ready(), ShouldBeFalse)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.GetStats()["categories"], ShouldEqual, 8)
		})

		Convey("And queries fail with ErrNotStarted", func() {
			_, err := svc.PointRisk(context.Background(), 43, -79, nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a service without a source", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then Start fails", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoSource), ShouldBeTrue)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a service over an in-memory source", t, func() {
		svc := startedService()
		defer svc.Stop()

		Convey("Then it is ready and reports its incidents", func() {
			So(svc.Ready(), ShouldBeTrue)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["incidents"], ShouldEqual, 2)
			So(stats["source"], ShouldEqual, "memory")
		})

		Convey("And a second Start is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given a source missing a configured category", t, func() {
		src := source.NewMemory(map[model.Category][]repository.RawRecord{
			"Shootings": {{Category: "Shootings", Latitude: 43, Longitude: -79}},
		})

		Convey("When loading strictly", func() {
			svc := service.New(
				service.WithSource(src),
				service.WithCategories(testCategories),
				service.WithLogger(logger.Nop()),
			)
			err := svc.Start(context.Background())

			Convey("Then startup fails with a data load error", func() {
				So(errors.Is(err, model.ErrDataLoad), ShouldBeTrue)
				So(svc.Ready(), ShouldBeFalse)
			})
		})

		Convey("When loading leniently", func() {
			svc := service.New(
				service.WithSource(src),
				service.WithCategories(testCategories),
				service.WithStrictLoad(false),
				service.WithLogger(logger.Nop()),
			)
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()

			Convey("Then scores are flagged degraded", func() {
				res, err := svc.PointRisk(context.Background(), 43, -79, nil)
				So(err, ShouldBeNil)
				So(res.Degraded, ShouldBeTrue)
				So(res.UnavailableCategories, ShouldResemble, []string{"Assaults"})
			})
		})
	})

	Convey("Given invalid scoring parameters", t, func() {
		svc := service.New(
			service.WithSource(memorySource()),
			service.WithSmoothing(-1),
			service.WithLogger(logger.Nop()),
		)

		Convey("Then Start reports a config error", func() {
			So(errors.Is(svc.Start(context.Background()), scoring.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService()

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(svc.Ready(), ShouldBeFalse)
			})

			Convey("And stopping twice is safe", func() {
				svc.Stop()
			})

			Convey("And it cannot be started again over the closed source", func() {
				err := svc.Start(context.Background())
				So(errors.Is(err, service.ErrStopped), ShouldBeTrue)
				So(svc.Ready(), ShouldBeFalse)

				_, err = svc.PointRisk(context.Background(), 43.0, -79.0, nil)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_PointRisk(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When querying the incident location", func() {
			res, err := svc.PointRisk(ctx, 43.0, -79.0, nil)

			Convey("Then both categories contribute", func() {
				So(err, ShouldBeNil)
				// raw 3.7 → 100*(1-e^(-3.7/75)) ≈ 4.81
				So(res.RiskScore, ShouldEqual, 5)
				So(res.Degraded, ShouldBeFalse)
				So(res.UnavailableCategories, ShouldBeEmpty)
			})
		})

		Convey("When querying with a since filter", func() {
			since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			res, err := svc.PointRisk(ctx, 43.0, -79.0, &since)

			Convey("Then older incidents are excluded", func() {
				So(err, ShouldBeNil)
				// raw 1.7 → 2.24
				So(res.RiskScore, ShouldEqual, 2)
			})
		})

		Convey("When querying far away", func() {
			res, err := svc.PointRisk(ctx, -33.86, 151.2, nil)
			So(err, ShouldBeNil)
			So(res.RiskScore, ShouldEqual, 0)
		})

		Convey("When the coordinate is invalid", func() {
			_, err := svc.PointRisk(ctx, 200, -79, nil)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then the query is counted", func() {
			_, _ = svc.PointRisk(ctx, 43.0, -79.0, nil)
			So(svc.GetStats()["pointQueries"], ShouldEqual, int64(1))
		})
	})
}

func TestService_ScoreRoutes(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := startedService(service.WithMaxCandidates(3))
		defer svc.Stop()
		ctx := context.Background()

		through := model.RouteCandidate{
			Geometry:        orb.LineString{{-79.001, 43.0}, {-78.999, 43.0}},
			DistanceMeters:  163,
			DurationSeconds: 120,
		}
		broken := model.RouteCandidate{Geometry: orb.LineString{{-79.0, 43.0}}}

		Convey("When scoring a good and a broken candidate", func() {
			res, err := svc.ScoreRoutes(ctx, []model.RouteCandidate{through, broken})

			Convey("Then the good route is scored and the broken one carries an error", func() {
				So(err, ShouldBeNil)
				So(len(res.Routes), ShouldEqual, 2)
				So(res.Routes[0].RiskScore, ShouldNotBeNil)
				So(*res.Routes[0].RiskScore, ShouldBeGreaterThan, 0)
				So(res.Routes[0].Distance, ShouldEqual, 163)
				So(res.Routes[0].Duration, ShouldEqual, 120)
				So(res.Routes[0].Error, ShouldBeEmpty)
				So(res.Routes[1].RiskScore, ShouldBeNil)
				So(res.Routes[1].Error, ShouldContainSubstring, "route 1")
				So(res.Failed(), ShouldEqual, 1)
			})
		})

		Convey("When no candidates are supplied", func() {
			_, err := svc.ScoreRoutes(ctx, nil)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("When too many candidates are supplied", func() {
			_, err := svc.ScoreRoutes(ctx, []model.RouteCandidate{through, through, through, through})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("When the request is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := svc.ScoreRoutes(cctx, []model.RouteCandidate{through})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
