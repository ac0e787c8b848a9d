package history_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/history"
)

var _ = Describe("Entry", func() {
	DescribeTable("WeekID uses ISO weeks",
		func(t time.Time, want string) {
			Expect(history.WeekID(t)).To(Equal(want))
		},
		Entry("mid-year", time.Date(2026, time.June, 17, 12, 0, 0, 0, time.UTC), "2026-W25"),
		Entry("new year's day in the previous year's week", time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), "2026-W53"),
		Entry("late December in week one", time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC), "2026-W01"),
	)

	It("indexes days from Monday", func() {
		monday := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
		Expect(history.DayIndex(monday)).To(Equal(0))
		Expect(history.DayIndex(monday.AddDate(0, 0, 6))).To(Equal(6))
		Expect(history.DayName(0)).To(Equal("Mon"))
		Expect(history.DayName(6)).To(Equal("Sun"))
	})

	It("stamps new entries", func() {
		at := time.Date(2026, time.January, 14, 8, 0, 0, 0, time.UTC)
		e := history.NewEntry(at, "nvidia", "qwen", "", "raw", nil)

		Expect(e.ID).NotTo(BeEmpty())
		Expect(e.WeekID).To(Equal("2026-W03"))
		Expect(e.Day).To(Equal(2))
		Expect(e.Terms).To(BeEmpty())
		Expect(e.Terms).NotTo(BeNil())
	})
})
