package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/okian/overtime/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	color.NoColor = true
}

func baseline() model.RequiredHoursBaseline {
	return model.RequiredHoursBaseline{
		Start:              time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		End:                time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		ExpectedDailyHours: 8,
		WorkingDays:        5,
		RequiredHours:      40,
	}
}

func TestFormatting(t *testing.T) {
	Convey("Given numeric values", t, func() {
		So(FormatHours(12.5), ShouldEqual, "12.50h")
		So(FormatSignedHours(8), ShouldEqual, "+8.00h")
		So(FormatSignedHours(-10), ShouldEqual, "-10.00h")
		So(FormatSignedHours(0), ShouldEqual, "0.00h")
		So(FormatPercent(20), ShouldEqual, "+20.0%")
		So(FormatPercent(-25), ShouldEqual, "-25.0%")
		So(FormatPercent(0), ShouldEqual, "0.0%")
	})

	Convey("Given display names", t, func() {
		So(Initials("Ada Lovelace"), ShouldEqual, "AL")
		So(Initials("mary ann evans"), ShouldEqual, "ME")
		So(Initials("Cher"), ShouldEqual, "C")
		So(Initials("  "), ShouldEqual, "?")
		So(Initials("émile zola"), ShouldEqual, "ÉZ")
	})

	Convey("Given overtime hours", t, func() {
		So(Status(1), ShouldEqual, "overtime")
		So(Status(-1), ShouldEqual, "undertime")
		So(Status(0), ShouldEqual, "on target")
	})
}

func TestQueryValues(t *testing.T) {
	Convey("Given a query", t, func() {
		Convey("Then zero values are omitted", func() {
			So(Query{}.Values(), ShouldBeEmpty)
		})

		Convey("Then set values are encoded", func() {
			v := Query{Mode: "source", Window: "range", From: "2024-05-01", To: "2024-05-31", Days: 3, Limit: 10}.Values()
			So(v.Get("mode"), ShouldEqual, "source")
			So(v.Get("window"), ShouldEqual, "range")
			So(v.Get("from"), ShouldEqual, "2024-05-01")
			So(v.Get("to"), ShouldEqual, "2024-05-31")
			So(v.Get("days"), ShouldEqual, "3")
			So(v.Get("limit"), ShouldEqual, "10")
		})
	})
}

func TestRender(t *testing.T) {
	Convey("Given an overtime response", t, func() {
		o := Overtime{
			Mode:     "roster",
			Baseline: baseline(),
			Records: []model.OvertimeRecord{
				{PersonID: "p2", DisplayName: "Bea Lind", TotalHours: 48, RequiredHours: 40, OvertimeHours: 8, OvertimePercentage: 20},
				{PersonID: "p3", TotalHours: 30, RequiredHours: 40, OvertimeHours: -10, OvertimePercentage: -25},
			},
		}

		Convey("When rendered", func() {
			var buf bytes.Buffer
			So(RenderOvertime(&buf, o), ShouldBeNil)
			out := buf.String()

			Convey("Then the baseline and rows are printed", func() {
				So(out, ShouldContainSubstring, "2024-05-06..2024-05-10")
				So(out, ShouldContainSubstring, "5 working days x 8.00h = 40.00h")
				So(out, ShouldContainSubstring, "Bea Lind")
				So(out, ShouldContainSubstring, "+8.00h")
				So(out, ShouldContainSubstring, "-25.0%")
				So(out, ShouldContainSubstring, "p3")
				So(out, ShouldNotContainSubstring, "placeholder")
			})
		})

		Convey("When it came from the fallback dataset", func() {
			o.UsedFallback = true
			o.FallbackReason = "roster_empty"
			var buf bytes.Buffer
			So(RenderOvertime(&buf, o), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "showing placeholder data: roster_empty")
		})

		Convey("When there are no records", func() {
			o.Records = nil
			var buf bytes.Buffer
			So(RenderOvertime(&buf, o), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "no records")
		})
	})

	Convey("Given a summary response", t, func() {
		s := Summary{Mode: "source", Baseline: baseline(), Summary: model.OvertimeSummary{
			EmployeeCount: 3, TotalRequiredHours: 120, TotalWorkedHours: 118,
			TotalOvertimeHours: -2, AverageOvertimeHours: -0.67, EmployeesWithOvertime: 1, EmployeesWithUndertime: 1,
		}}
		var buf bytes.Buffer
		So(RenderSummary(&buf, s), ShouldBeNil)
		out := buf.String()
		So(out, ShouldContainSubstring, "118.00h")
		So(out, ShouldContainSubstring, "-0.67h")
		So(out, ShouldContainSubstring, "mode: source")
	})
}

var ansi = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestRenderAlignmentWithColor(t *testing.T) {
	Convey("Given colored output", t, func() {
		color.NoColor = false
		Reset(func() { color.NoColor = true })

		o := Overtime{
			Mode:     "roster",
			Baseline: baseline(),
			Records: []model.OvertimeRecord{
				{PersonID: "p2", DisplayName: "Bea Lind", TotalHours: 48, RequiredHours: 40, OvertimeHours: 8, OvertimePercentage: 20},
				{PersonID: "p1", DisplayName: "Al Moss", TotalHours: 40, RequiredHours: 40},
				{PersonID: "p3", TotalHours: 30, RequiredHours: 40, OvertimeHours: -10, OvertimePercentage: -25},
			},
		}
		var buf bytes.Buffer
		So(RenderOvertime(&buf, o), ShouldBeNil)

		Convey("Then columns after colored cells line up", func() {
			So(buf.String(), ShouldContainSubstring, "\x1b[")
			lines := strings.Split(strings.TrimRight(ansi.ReplaceAllString(buf.String(), ""), "\n"), "\n")
			So(lines, ShouldHaveLength, 5)
			col := strings.Index(lines[1], "BILLABLE")
			So(col, ShouldBeGreaterThan, 0)
			for _, row := range lines[2:] {
				So(row[col-2:col], ShouldEqual, "  ")
				So(row[col:], ShouldStartWith, "0.00h")
			}
		})
	})

	Convey("Given a table with wide runes", t, func() {
		var tb table
		tb.add(plain("名前"), plain("x"))
		tb.add(plain("ab"), plain("y"))
		var buf bytes.Buffer
		So(tb.write(&buf), ShouldBeNil)

		Convey("Then padding follows display width", func() {
			So(buf.String(), ShouldEqual, "名前  x\nab    y\n")
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a fake overtime API", t, func() {
		var lastQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Path {
			case "/overtime":
				_ = json.NewEncoder(w).Encode(Overtime{Mode: "roster", Baseline: baseline(), Records: []model.OvertimeRecord{{PersonID: "p1", TotalHours: 40}}})
			case "/overtime/summary":
				_ = json.NewEncoder(w).Encode(Summary{Mode: "roster", Summary: model.OvertimeSummary{EmployeeCount: 1}})
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":"bad_request","message":"nope"}`))
			}
		}))
		defer srv.Close()
		c := NewClient(srv.URL+"/", time.Second)
		ctx := context.Background()

		Convey("Then records are decoded", func() {
			o, err := c.Overtime(ctx, Query{Mode: "roster", Limit: 5})
			So(err, ShouldBeNil)
			So(o.Records, ShouldHaveLength, 1)
			So(o.Baseline.RequiredHours, ShouldEqual, 40)
			So(lastQuery, ShouldEqual, "limit=5&mode=roster")
		})

		Convey("Then the summary request drops the limit", func() {
			s, err := c.Summary(ctx, Query{Limit: 5, Days: 7})
			So(err, ShouldBeNil)
			So(s.Summary.EmployeeCount, ShouldEqual, 1)
			So(lastQuery, ShouldEqual, "days=7")
		})

		Convey("Then API errors carry the message", func() {
			c.base = srv.URL + "/missing"
			_, err := c.Overtime(ctx, Query{})
			So(errors.Is(err, ErrStatus), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "nope")
		})
	})
}
