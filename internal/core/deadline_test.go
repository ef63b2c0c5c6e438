package core_test

import (
	"testing"
	"time"

	"github.com/mikey/llm-task-extractor/internal/core"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeDeadline(t *testing.T) {
	Convey("Given a reference instant of Tue 10 Mar 2026 14:30 UTC", t, func() {
		ref := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
		weekLater := ref.Add(7 * 24 * time.Hour)

		Convey("When the deadline is today", func() {
			Convey("Then it is the end of the reference day", func() {
				So(core.NormalizeDeadline("today", ref), ShouldEqual, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC))
			})

			Convey("And matching ignores case and surrounding space", func() {
				So(core.NormalizeDeadline("  Today \n", ref), ShouldEqual, time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC))
			})
		})

		Convey("When the deadline is tomorrow", func() {
			Convey("Then it keeps the reference time of day rather than end of day", func() {
				So(core.NormalizeDeadline("tomorrow", ref), ShouldEqual, time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC))
			})
		})

		Convey("When the deadline is the day after tomorrow", func() {
			Convey("Then it is two days after the reference", func() {
				So(core.NormalizeDeadline("Day After Tomorrow", ref), ShouldEqual, time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC))
			})
		})

		Convey("When the deadline is none", func() {
			Convey("Then it is seven days out", func() {
				So(core.NormalizeDeadline("none", ref), ShouldEqual, weekLater)
			})
		})

		Convey("When the deadline is within N hours", func() {
			Convey("Then exactly N hours are added", func() {
				So(core.NormalizeDeadline("within 5 hours", ref), ShouldEqual, ref.Add(5*time.Hour))
				So(core.NormalizeDeadline("Within 48 Hours", ref), ShouldEqual, ref.Add(48*time.Hour))
				So(core.NormalizeDeadline("within 1 hour", ref), ShouldEqual, ref.Add(time.Hour))
			})

			Convey("And an absurd N falls back to the default window", func() {
				So(core.NormalizeDeadline("within 99999999999999999999 hours", ref), ShouldEqual, weekLater)
			})
		})

		Convey("When the deadline is an absolute date", func() {
			Convey("Then day/month/year with a time keeps the time", func() {
				So(core.NormalizeDeadline("15/03/2026 09:15", ref), ShouldEqual, time.Date(2026, 3, 15, 9, 15, 0, 0, time.UTC))
			})

			Convey("Then date-only formats end the day at 23:59:59", func() {
				endOfApril5 := time.Date(2026, 4, 5, 23, 59, 59, 0, time.UTC)
				So(core.NormalizeDeadline("5/4/2026", ref), ShouldEqual, endOfApril5)
				So(core.NormalizeDeadline("05/04/2026", ref), ShouldEqual, endOfApril5)
				So(core.NormalizeDeadline("2026-04-05", ref), ShouldEqual, endOfApril5)
				So(core.NormalizeDeadline("April 5, 2026", ref), ShouldEqual, endOfApril5)
				So(core.NormalizeDeadline("april 5, 2026", ref), ShouldEqual, endOfApril5)
				So(core.NormalizeDeadline("5 Apr 2026", ref), ShouldEqual, endOfApril5)
			})

			Convey("Then the date is read in the reference's location", func() {
				zone := time.FixedZone("IST", 5*3600+1800)
				localRef := ref.In(zone)
				got := core.NormalizeDeadline("2026-04-05", localRef)
				So(got, ShouldEqual, time.Date(2026, 4, 5, 23, 59, 59, 0, zone))
				So(got.Location(), ShouldEqual, zone)
			})

			Convey("Then an impossible calendar date falls back", func() {
				So(core.NormalizeDeadline("31/02/2026", ref), ShouldEqual, weekLater)
			})
		})

		Convey("When the deadline is not recognized", func() {
			Convey("Then it is exactly seven days out", func() {
				for _, text := range []string{"", "ASAP", "next week", "end of month", "2026/04/05", "soon-ish"} {
					So(core.NormalizeDeadline(text, ref), ShouldEqual, weekLater)
				}
			})
		})
	})
}
