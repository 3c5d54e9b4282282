package logger

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap/zapcore"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with the default encoder", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with the console encoder", func() {
			So(InitWithFormat("console"), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When initialized with an unknown encoder", func() {
			err := InitWithFormat("xml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown log format")
		})
	})
}

func TestLoggerBasic(t *testing.T) {
	Convey("Given an initialized logger", t, func() {
		So(Init(), ShouldBeNil)
		log := Get()
		ctx := WithRequestID(context.Background(), "req-1")

		Convey("Then every level accepts structured fields", func() {
			So(func() {
				log.Debug(ctx, "debug message", String("k", "v"))
				log.Info(ctx, "info message", Int("n", 1), Float64("f", 1.5))
				log.Warn(ctx, "warn message", Any("any", []int{1, 2}))
				log.Error(ctx, "error message", Error(errors.New("boom")))
			}, ShouldNotPanic)
		})

		Convey("And named loggers can be derived", func() {
			named := Named("test")
			So(named, ShouldNotBeNil)
			So(func() { named.Info(ctx, "named message") }, ShouldNotPanic)
		})
	})
}

func TestRequestID(t *testing.T) {
	Convey("Given a context without a request id", t, func() {
		ctx := context.Background()
		So(RequestID(ctx), ShouldEqual, "")

		Convey("When a request id is attached", func() {
			ctx = WithRequestID(ctx, "abc")
			So(RequestID(ctx), ShouldEqual, "abc")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(level.Level(), ShouldEqual, zapcore.DebugLevel)
		So(SetLevelString("WARNING"), ShouldBeNil)
		So(level.Level(), ShouldEqual, zapcore.WarnLevel)
		So(SetLevelString("error"), ShouldBeNil)
		So(level.Level(), ShouldEqual, zapcore.ErrorLevel)
		So(SetLevelString(""), ShouldBeNil)
		So(level.Level(), ShouldEqual, zapcore.InfoLevel)

		Convey("Then unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		log := Nop()
		So(func() { log.Named("x").Info(context.Background(), "ignored") }, ShouldNotPanic)
	})
}
