package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/okian/overtime/internal/adapters/http/api"
	"github.com/okian/overtime/internal/adapters/worklog"
	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/internal/domain/overtime"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	mu      sync.Mutex
	result  overtime.Result
	err     error
	calls   int
	mode    overtime.Mode
	window  calendar.Window
	defMode overtime.Mode
	defWin  calendar.Window
}

func (m *mockDependencies) ComputeOvertime(_ context.Context, mode overtime.Mode, window calendar.Window) (overtime.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.mode = mode
	m.window = window
	return m.result, m.err
}

func (m *mockDependencies) DefaultMode() overtime.Mode     { return m.defMode }
func (m *mockDependencies) DefaultWindow() calendar.Window { return m.defWin }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func sampleResult() overtime.Result {
	return overtime.Result{
		Baseline: model.RequiredHoursBaseline{
			Start:              time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
			End:                time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
			ExpectedDailyHours: 8,
			WorkingDays:        5,
			RequiredHours:      40,
		},
		Records: []model.OvertimeRecord{
			{PersonID: "p2", DisplayName: "Bea Lind", TotalHours: 48, RequiredHours: 40, OvertimeHours: 8, OvertimePercentage: 20, BillableHours: 40, NonBillableHours: 8},
			{PersonID: "p1", DisplayName: "Al Moss", TotalHours: 40, RequiredHours: 40, BillableHours: 30, NonBillableHours: 10},
			{PersonID: "p3", DisplayName: "Cy", TotalHours: 30, RequiredHours: 40, OvertimeHours: -10, OvertimePercentage: -25},
		},
	}
}

func newMux(deps *mockDependencies, maxLimit int) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, maxLimit)
	server.Register(context.Background(), mux)
	return mux
}

func get(mux http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{result: sampleResult(), defMode: overtime.ModeRosterDriven, defWin: calendar.Trailing(30)}
		mux := newMux(deps, 100)

		Convey("Then health serves the metrics registry", func() {
			w := get(mux, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats returns the provider snapshot", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then unknown paths are not found", func() {
			w := get(mux, "/unknown")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then non-GET methods are rejected", func() {
			req := httptest.NewRequest(http.MethodPost, "/overtime", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(deps.calls, ShouldEqual, 0)
		})
	})
}

func TestHandleGetOvertime(t *testing.T) {
	Convey("Given the overtime endpoint", t, func() {
		deps := &mockDependencies{result: sampleResult(), defMode: overtime.ModeRosterDriven, defWin: calendar.Trailing(30)}
		mux := newMux(deps, 2)

		Convey("When called without parameters", func() {
			w := get(mux, "/overtime")

			Convey("Then defaults are applied and all records are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
				So(deps.mode, ShouldEqual, overtime.ModeRosterDriven)
				So(deps.window, ShouldResemble, calendar.Trailing(30))

				body := decode(w)
				So(body["mode"], ShouldEqual, "roster")
				So(body["used_fallback"], ShouldEqual, false)
				So(body["records"], ShouldHaveLength, 3)
				baseline := body["baseline"].(map[string]any)
				So(baseline["required_hours"], ShouldEqual, 40.0)
			})
		})

		Convey("When mode and trailing days are given", func() {
			w := get(mux, "/overtime?mode=source&days=7")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.mode, ShouldEqual, overtime.ModeSourceDriven)
			So(deps.window, ShouldResemble, calendar.Trailing(7))
			So(decode(w)["mode"], ShouldEqual, "source")
		})

		Convey("When a year-to-date window is requested", func() {
			w := get(mux, "/overtime?window=ytd")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.window, ShouldResemble, calendar.YearToDate())
		})

		Convey("When an explicit range is requested", func() {
			w := get(mux, "/overtime?from=2024-05-06&to=2024-05-10")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.window.Kind, ShouldEqual, calendar.WindowExplicit)
			So(deps.window.Start.Equal(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(deps.window.End.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("When a limit is given", func() {
			w := get(mux, "/overtime?limit=1")
			So(w.Code, ShouldEqual, http.StatusOK)
			records := decode(w)["records"].([]any)
			So(records, ShouldHaveLength, 1)
			So(records[0].(map[string]any)["person_id"], ShouldEqual, "p2")
		})

		Convey("When the limit exceeds the maximum", func() {
			w := get(mux, "/overtime?limit=3")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
			So(deps.calls, ShouldEqual, 0)
		})

		Convey("When parameters are malformed", func() {
			for _, target := range []string{
				"/overtime?limit=abc",
				"/overtime?limit=0",
				"/overtime?mode=weekly",
				"/overtime?days=-1",
				"/overtime?window=month",
				"/overtime?from=2024-13-01&to=2024-05-10",
				"/overtime?from=2024-05-01",
			} {
				w := get(mux, target)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
			So(deps.calls, ShouldEqual, 0)
		})

		Convey("When the range is inverted", func() {
			deps.err = &calendar.InvalidRangeError{Reason: "start is after end"}
			w := get(mux, "/overtime?from=2024-05-10&to=2024-05-01")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_range")
		})

		Convey("When computation fails unexpectedly", func() {
			deps.err = errors.New("boom")
			w := get(mux, "/overtime")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "internal_error")
		})

		Convey("When the result came from the fallback dataset", func() {
			res := sampleResult()
			res.UsedFallback = true
			res.FallbackReason = overtime.ReasonRosterEmpty
			deps.result = res
			body := decode(get(mux, "/overtime"))
			So(body["used_fallback"], ShouldEqual, true)
			So(body["fallback_reason"], ShouldEqual, overtime.ReasonRosterEmpty)
		})
	})
}

// engineDependencies serves requests from a real engine.
type engineDependencies struct {
	engine *overtime.Engine
}

func (d engineDependencies) ComputeOvertime(ctx context.Context, mode overtime.Mode, window calendar.Window) (overtime.Result, error) {
	return d.engine.ComputeOvertimeRecords(ctx, mode, window)
}

func (engineDependencies) DefaultMode() overtime.Mode     { return overtime.ModeSourceDriven }
func (engineDependencies) DefaultWindow() calendar.Window { return calendar.Trailing(30) }

func TestWindowLimit(t *testing.T) {
	Convey("Given the overtime endpoint backed by an engine", t, func() {
		engine := overtime.New(
			overtime.WithSources(worklog.NewStatic(nil)),
			overtime.WithClock(func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }),
		)
		mux := http.NewServeMux()
		api.NewServer(engineDependencies{engine: engine}, &mockStatsProvider{}, 100).Register(context.Background(), mux)

		Convey("When a trailing window is far longer than the limit", func() {
			start := time.Now()
			w := get(mux, "/overtime?days=5000000")

			Convey("Then it is rejected quickly as an invalid range", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decode(w)
				So(body["code"], ShouldEqual, "invalid_range")
				So(body["message"], ShouldContainSubstring, "731 day limit")
				So(time.Since(start), ShouldBeLessThan, time.Second)
			})
		})

		Convey("When an explicit range spans the whole calendar", func() {
			w := get(mux, "/overtime/summary?from=0001-01-01&to=9999-12-31")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_range")
		})

		Convey("When the window is exactly at the limit", func() {
			w := get(mux, "/overtime?days=731")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestHandleGetSummary(t *testing.T) {
	Convey("Given the summary endpoint", t, func() {
		deps := &mockDependencies{result: sampleResult(), defMode: overtime.ModeSourceDriven, defWin: calendar.Trailing(5)}
		mux := newMux(deps, 100)

		Convey("Then it aggregates the computed records", func() {
			w := get(mux, "/overtime/summary")
			So(w.Code, ShouldEqual, http.StatusOK)

			body := decode(w)
			So(body["mode"], ShouldEqual, "source")
			summary := body["summary"].(map[string]any)
			So(summary["employee_count"], ShouldEqual, 3.0)
			So(summary["total_required_hours"], ShouldEqual, 120.0)
			So(summary["total_worked_hours"], ShouldEqual, 118.0)
			So(summary["total_overtime_hours"], ShouldEqual, -2.0)
			So(summary["average_overtime_hours"], ShouldAlmostEqual, -0.67)
			So(summary["employees_with_overtime"], ShouldEqual, 1.0)
			So(summary["employees_with_undertime"], ShouldEqual, 1.0)
		})

		Convey("Then an empty result yields a zero summary", func() {
			deps.result = overtime.Result{Records: []model.OvertimeRecord{}}
			summary := decode(get(mux, "/overtime/summary"))["summary"].(map[string]any)
			So(summary["employee_count"], ShouldEqual, 0.0)
			So(summary["average_overtime_hours"], ShouldEqual, 0.0)
		})
	})
}

func TestHandleGetPerson(t *testing.T) {
	Convey("Given the person endpoint", t, func() {
		deps := &mockDependencies{result: sampleResult(), defMode: overtime.ModeRosterDriven, defWin: calendar.Trailing(5)}
		mux := newMux(deps, 100)

		Convey("When the person is present", func() {
			w := get(mux, "/overtime/person/p1")

			Convey("Then the record and its rank are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["rank"], ShouldEqual, 2.0)
				So(body["of"], ShouldEqual, 3.0)
				So(body["record"].(map[string]any)["display_name"], ShouldEqual, "Al Moss")
			})
		})

		Convey("When the person is absent", func() {
			w := get(mux, "/overtime/person/nobody")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the id is missing", func() {
			w := get(mux, "/overtime/person/")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(deps.calls, ShouldEqual, 0)
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with request ids", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = r.Header.Get(api.RequestIDHeader)
		}))

		Convey("Then a missing id is generated and echoed", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			So(seen, ShouldHaveLength, 36)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, seen)
		})

		Convey("Then a caller id is preserved", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(seen, ShouldEqual, "abc-123")
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a handler wrapped with metrics", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("tea"))
		}, "test")

		Convey("Then the status and body pass through", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/", nil))
			So(w.Code, ShouldEqual, http.StatusTeapot)
			So(w.Body.String(), ShouldEqual, "tea")
		})
	})
}
