package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/overtime/internal/adapters/worklog"
	. "github.com/smartystreets/goconvey/convey"
)

func setupTestStore(t *testing.T) (*Source, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	src, err := Open(context.Background(), Config{Addr: mr.Addr(), KeyPrefix: "test"}, nil)
	if err != nil {
		t.Fatalf("Failed to open Redis source: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src, mr
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRedisSource(t *testing.T) {
	Convey("Given a store with daily totals", t, func() {
		src, mr := setupTestStore(t)
		ctx := context.Background()
		So(src.Record(ctx, "bob", day("2024-01-02"), 3600, 1800), ShouldBeNil)
		So(src.Record(ctx, "bob", day("2024-01-02"), 600, 0), ShouldBeNil)
		So(src.Record(ctx, "bob", day("2024-01-04"), 7200, 7200), ShouldBeNil)
		So(src.Record(ctx, "alice", day("2024-01-03"), 1000, 0), ShouldBeNil)
		So(src.Record(ctx, "alice", day("2024-02-01"), 9999, 0), ShouldBeNil)
		q := worklog.Query{Start: day("2024-01-01"), End: day("2024-01-05")}

		Convey("When fetching everyone", func() {
			res := src.FetchTotals(ctx, q)

			Convey("Then days inside the window are summed per person", func() {
				So(res.Unavailable, ShouldBeFalse)
				So(len(res.Totals), ShouldEqual, 2)
				So(res.Totals[0].PersonID, ShouldEqual, "alice")
				So(res.Totals[0].TotalSeconds, ShouldEqual, 1000)
				bob, _ := res.Lookup("bob")
				So(bob.TotalSeconds, ShouldEqual, 11400)
				So(bob.BillableSeconds, ShouldEqual, 9000)
				So(bob.NonBillableSeconds, ShouldEqual, 2400)
			})
		})

		Convey("When fetching a person without data in the window", func() {
			q.PersonID = "carol"
			res := src.FetchTotals(ctx, q)

			Convey("Then the answer is available and empty", func() {
				So(res.Unavailable, ShouldBeFalse)
				So(res.Totals, ShouldBeEmpty)
			})
		})

		Convey("When a hash is malformed", func() {
			mr.HSet("test:worklog:alice:2024-01-05", "total_seconds", "lots")
			res := src.FetchTotals(ctx, q)

			Convey("Then the bad day is skipped", func() {
				alice, _ := res.Lookup("alice")
				So(alice.TotalSeconds, ShouldEqual, 1000)
			})
		})

		Convey("When Redis goes away", func() {
			mr.Close()
			res := src.FetchTotals(ctx, q)

			Convey("Then the source is unavailable", func() {
				So(res.Unavailable, ShouldBeTrue)
				So(src.Name(), ShouldEqual, "redis")
			})
		})
	})
}

func TestOpenFailure(t *testing.T) {
	Convey("Given no Redis server", t, func() {
		_, err := Open(context.Background(), Config{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}, nil)

		Convey("Then Open fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDialWithoutServer(t *testing.T) {
	Convey("Given no Redis server", t, func() {
		src := Dial(context.Background(), Config{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}, nil)
		defer src.Close()

		Convey("Then Dial still returns a source", func() {
			So(src, ShouldNotBeNil)
			So(src.Name(), ShouldEqual, "redis")
		})

		Convey("Then fetching reports it unavailable", func() {
			res := src.FetchTotals(context.Background(), worklog.Query{
				Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			})
			So(res.Unavailable, ShouldBeTrue)
		})
	})
}
