package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/saferoute/internal/adapters/repository"
	"github.com/okian/saferoute/internal/adapters/worker"
	"github.com/okian/saferoute/internal/domain/aggregate"
	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/internal/domain/scoring"
	"github.com/okian/saferoute/pkg/logger"
)

func fixture() (*scoring.Evaluator, *repository.Snapshot) {
	ev, err := scoring.New(map[model.Category]scoring.CategoryConfig{
		"Shootings": {RadiusMeters: 300, Weight: 2.0},
		"Assaults":  {RadiusMeters: 200, Weight: 1.7},
	})
	if err != nil {
		panic(err)
	}
	snap := repository.NewSnapshot(map[model.Category][]model.IncidentRecord{
		"Shootings": {{Category: "Shootings", Latitude: 43.0, Longitude: -79.0}},
		"Assaults":  {{Category: "Assaults", Latitude: 43.0005, Longitude: -79.0}},
	})
	return ev, snap
}

func line(n int) []orb.Point {
	pts := make([]orb.Point, n)
	for i := range pts {
		pts[i] = orb.Point{-79.0, 43.0 + float64(i)*0.0001}
	}
	return pts
}

func TestPoolScoreAll(t *testing.T) {
	Convey("Given a started pool", t, func() {
		ev, snap := fixture()
		pool := worker.NewPool(ev,
			worker.WithLogger(logger.Nop()),
			worker.WithWorkerCount(3),
			worker.WithChunkSize(4),
			worker.WithQueueSize(2),
		)
		pool.Start(context.Background())
		defer pool.Stop()

		So(pool.Workers(), ShouldEqual, 3)

		Convey("When scoring more points than fit in one chunk", func() {
			points := line(50)
			got, err := pool.ScoreAll(context.Background(), snap, points)

			Convey("Then scores match inline scoring in input order", func() {
				So(err, ShouldBeNil)
				want, _ := aggregate.Inline(ev).ScoreAll(context.Background(), snap, points)
				So(got, ShouldResemble, want)
				So(got[0], ShouldBeGreaterThan, 0)
				So(got[49], ShouldEqual, 0)
				So(pool.Processed(), ShouldEqual, 50)
			})
		})

		Convey("When many requests score concurrently", func() {
			var wg sync.WaitGroup
			results := make([][]int, 8)
			errs := make([]error, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = pool.ScoreAll(context.Background(), snap, line(30))
				}(i)
			}
			wg.Wait()

			Convey("Then each gets a complete, identical result", func() {
				for i := range results {
					So(errs[i], ShouldBeNil)
					So(results[i], ShouldResemble, results[0])
				}
			})
		})

		Convey("When scoring no points", func() {
			got, err := pool.ScoreAll(context.Background(), snap, nil)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := pool.ScoreAll(ctx, snap, line(100))

			Convey("Then the context error is returned", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestPoolLifecycle(t *testing.T) {
	Convey("Given a pool", t, func() {
		ev, snap := fixture()
		pool := worker.NewPool(ev, worker.WithLogger(logger.Nop()), worker.WithWorkerCount(2))

		Convey("When it has not been started", func() {
			_, err := pool.ScoreAll(context.Background(), snap, line(3))
			So(errors.Is(err, worker.ErrNotStarted), ShouldBeTrue)
			So(pool.Shutdown(context.Background()), ShouldBeNil)
		})

		Convey("When it has been shut down", func() {
			pool.Start(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			So(pool.Shutdown(ctx), ShouldBeNil)

			Convey("Then further scoring fails", func() {
				_, err := pool.ScoreAll(context.Background(), snap, line(3))
				So(errors.Is(err, worker.ErrStopped), ShouldBeTrue)
			})

			Convey("And shutting down again is harmless", func() {
				So(pool.Shutdown(context.Background()), ShouldBeNil)
				So(func() { pool.Stop() }, ShouldNotPanic)
			})
		})
	})
}

func TestPoolAsPointScorer(t *testing.T) {
	Convey("Given an aggregator backed by the pool", t, func() {
		ev, snap := fixture()
		pool := worker.NewPool(ev, worker.WithLogger(logger.Nop()))
		pool.Start(context.Background())
		defer pool.Stop()

		agg, err := aggregate.New(ev, aggregate.WithLogger(logger.Nop()), aggregate.WithPointScorer(pool))
		So(err, ShouldBeNil)
		inline, err := aggregate.New(ev, aggregate.WithLogger(logger.Nop()))
		So(err, ShouldBeNil)

		candidates := []model.RouteCandidate{
			{Geometry: orb.LineString{{-79.0, 42.999}, {-79.0, 43.002}}},
			{Geometry: orb.LineString{{-79.01, 43.0}, {-78.99, 43.0}}},
		}

		Convey("Then route scores equal the inline results", func() {
			a := agg.Score(context.Background(), snap, candidates)
			b := inline.Score(context.Background(), snap, candidates)
			for i := range a {
				So(a[i].Err, ShouldBeNil)
				So(a[i].Score.RiskScore, ShouldEqual, b[i].Score.RiskScore)
			}
		})
	})
}
