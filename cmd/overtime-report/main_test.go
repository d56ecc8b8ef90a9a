package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestReportCommand(t *testing.T) {
	convey.Convey("Given a fake overtime service", t, func() {
		var gotPath, gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"mode":"roster","baseline":{"start":"2024-05-06T00:00:00Z","end":"2024-05-10T00:00:00Z","expected_daily_hours":8,"working_days":5,"required_hours":40},` +
				`"records":[{"person_id":"p1","display_name":"Ada Lovelace","total_hours":42,"required_hours":40,"overtime_hours":2,"overtime_percentage":5}],` +
				`"summary":{"employee_count":1,"total_worked_hours":42}}`))
		}))
		defer srv.Close()

		var out bytes.Buffer
		rootCmd.SetOut(&out)

		convey.Convey("When printing records", func() {
			rootCmd.SetArgs([]string{"--url", srv.URL, "--no-color", "--days", "5", "--limit", "3"})
			err := rootCmd.ExecuteContext(context.Background())

			convey.So(err, convey.ShouldBeNil)
			convey.So(gotPath, convey.ShouldEqual, "/overtime")
			convey.So(gotQuery, convey.ShouldEqual, "days=5&limit=3")
			convey.So(out.String(), convey.ShouldContainSubstring, "Ada Lovelace")
			convey.So(out.String(), convey.ShouldContainSubstring, "+2.00h")
			convey.So(out.String(), convey.ShouldContainSubstring, "AL")
		})

		convey.Convey("When an argument is passed", func() {
			rootCmd.SetArgs([]string{"--url", srv.URL, "extra"})
			err := rootCmd.ExecuteContext(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
