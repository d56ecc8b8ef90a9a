package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/overtime/internal/adapters/http/api"
	"github.com/okian/overtime/internal/adapters/http/swagger"
	service "github.com/okian/overtime/internal/app"
	"github.com/okian/overtime/internal/config"
	"github.com/okian/overtime/pkg/logger"
	"github.com/okian/overtime/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("OVERTIME_ADDR", ":8080")
			_ = os.Setenv("OVERTIME_DEFAULT_MODE", "source")
			_ = os.Setenv("OVERTIME_FETCH_CONCURRENCY", "4")
			defer func() {
				_ = os.Unsetenv("OVERTIME_ADDR")
				_ = os.Unsetenv("OVERTIME_DEFAULT_MODE")
				_ = os.Unsetenv("OVERTIME_FETCH_CONCURRENCY")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DefaultMode, convey.ShouldEqual, "source")
				convey.So(cfg.FetchConcurrency, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("OVERTIME_EXPECTED_DAILY_HOURS", "-1")
			defer func() { _ = os.Unsetenv("OVERTIME_EXPECTED_DAILY_HOURS") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When service metrics are updated before start", func() {
			svc := service.New(service.WithLogger(logger.Nop()))
			convey.So(func() {
				updateServiceMetrics(context.Background(), svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When service metrics are updated on a started service", func() {
			cfg := config.New(context.Background())
			cfg.DefaultTrailingDays = 7
			svc := service.New(
				service.WithConfig(cfg),
				service.WithLogger(logger.Nop()),
				service.WithClock(func() time.Time { return time.Date(2024, 5, 12, 12, 0, 0, 0, time.UTC) }),
			)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			updateServiceMetrics(context.Background(), svc)
			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			var required float64
			for _, mf := range families {
				if mf.GetName() == "overtime_required_hours" {
					required = mf.GetMetric()[0].GetGauge().GetValue()
				}
			}
			convey.So(required, convey.ShouldEqual, 40)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the assembled HTTP stack", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := config.New(ctx)
		svc := service.New(service.WithConfig(cfg), service.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		swagger.Register(ctx, mux)
		api.NewServer(svc, svc, svc.MaxRecordsLimit()).Register(ctx, mux)
		handler := api.RequestIDMiddleware(mux)

		convey.Convey("Then an empty static roster answers with the fallback dataset", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/overtime?days=7", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get(api.RequestIDHeader), convey.ShouldNotBeEmpty)

			var body struct {
				Records        []json.RawMessage `json:"records"`
				UsedFallback   bool              `json:"used_fallback"`
				FallbackReason string            `json:"fallback_reason"`
			}
			convey.So(json.Unmarshal(w.Body.Bytes(), &body), convey.ShouldBeNil)
			convey.So(body.UsedFallback, convey.ShouldBeTrue)
			convey.So(body.FallbackReason, convey.ShouldEqual, "roster_empty")
			convey.So(body.Records, convey.ShouldHaveLength, 5)
		})

		convey.Convey("Then the API docs are served", func() {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-docs", nil))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}
