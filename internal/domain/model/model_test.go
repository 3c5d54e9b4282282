package model_test

import (
	"errors"
	"math"
	"testing"
	"time"

	model "github.com/okian/saferoute/internal/domain/model"
	"github.com/paulmach/orb"
	"github.com/smartystreets/goconvey/convey"
)

func TestIncidentRecord(t *testing.T) {
	convey.Convey("Given an incident record", t, func() {
		rec := model.IncidentRecord{
			Category:   "Shootings",
			Latitude:   43.65,
			Longitude:  -79.38,
			OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		}

		convey.Convey("Then Point orders longitude first", func() {
			convey.So(rec.Point(), convey.ShouldResemble, orb.Point{-79.38, 43.65})
		})
	})
}

func TestValidateCoordinate(t *testing.T) {
	convey.Convey("Given coordinate validation", t, func() {
		convey.Convey("When the coordinate is in range", func() {
			convey.So(model.ValidateCoordinate(43.0, -79.0), convey.ShouldBeNil)
			convey.So(model.ValidateCoordinate(90, 180), convey.ShouldBeNil)
			convey.So(model.ValidateCoordinate(-90, -180), convey.ShouldBeNil)
		})

		convey.Convey("When the latitude is 200", func() {
			err := model.ValidateCoordinate(200, 0)

			convey.Convey("Then a validation error names the latitude", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				var verr *model.ValidationError
				convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
				convey.So(verr.Field, convey.ShouldEqual, "latitude")
			})
		})

		convey.Convey("When the longitude is out of range", func() {
			err := model.ValidateCoordinate(0, -181)
			var verr *model.ValidationError
			convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
			convey.So(verr.Field, convey.ShouldEqual, "longitude")
		})

		convey.Convey("When a value is not finite", func() {
			convey.So(model.ValidateCoordinate(math.NaN(), 0), convey.ShouldNotBeNil)
			convey.So(model.ValidateCoordinate(0, math.Inf(1)), convey.ShouldNotBeNil)
		})
	})
}

func TestParseLatLng(t *testing.T) {
	convey.Convey("Given lat,lng strings", t, func() {
		convey.Convey("When the string is well formed", func() {
			p, err := model.ParseLatLng("origin", " 43.65, -79.38 ")
			convey.So(err, convey.ShouldBeNil)
			convey.So(p, convey.ShouldResemble, orb.Point{-79.38, 43.65})
		})

		convey.Convey("When the string is malformed", func() {
			for _, in := range []string{"", "43.65", "a,b", "43.65,-79.38,1", "95,0"} {
				_, err := model.ParseLatLng("origin", in)
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "origin")
			}
		})
	})
}

func TestParseMode(t *testing.T) {
	convey.Convey("Given travel modes", t, func() {
		for _, m := range model.Modes() {
			got, err := model.ParseMode(string(m))
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, m)
		}

		convey.Convey("Then parsing is case-insensitive", func() {
			got, err := model.ParseMode("Walking")
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, model.ModeWalking)
		})

		convey.Convey("Then unknown and empty modes are validation errors", func() {
			_, err := model.ParseMode("flying")
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
			_, err = model.ParseMode("")
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	convey.Convey("Given the typed errors", t, func() {
		cause := errors.New("boom")

		convey.Convey("Then each matches its kind and unwraps its cause", func() {
			load := &model.DataLoadError{Source: "geojson", Category: "Assaults", Index: 3, Err: cause}
			convey.So(errors.Is(load, model.ErrDataLoad), convey.ShouldBeTrue)
			convey.So(errors.Is(load, cause), convey.ShouldBeTrue)
			convey.So(load.Error(), convey.ShouldContainSubstring, "record 3")

			up := &model.UpstreamError{Provider: "mapbox", StatusCode: 503, Err: cause}
			convey.So(errors.Is(up, model.ErrUpstream), convey.ShouldBeTrue)
			convey.So(up.Retryable(), convey.ShouldBeTrue)

			cand := &model.CandidateError{Index: 1, Err: cause}
			convey.So(errors.Is(cand, model.ErrPartialScoring), convey.ShouldBeTrue)
			convey.So(cand.Error(), convey.ShouldStartWith, "route 1")

			geom := &model.ValidationError{Field: "geometry", Reason: "1 vertex", Err: model.ErrInvalidGeometry}
			convey.So(errors.Is(geom, model.ErrValidation), convey.ShouldBeTrue)
			convey.So(errors.Is(geom, model.ErrInvalidGeometry), convey.ShouldBeTrue)
		})

		convey.Convey("Then a category-less load error omits the category", func() {
			load := &model.DataLoadError{Source: "postgres", Index: -1, Err: cause}
			convey.So(load.Error(), convey.ShouldEqual, "load incidents from postgres: boom")
		})
	})
}
