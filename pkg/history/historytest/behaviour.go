// Package historytest holds Ginkgo behaviour shared by every history.Store
// implementation.
package historytest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/history"
)

// Monday is a fixed instant in ISO week 2026-W03.
var Monday = time.Date(2026, time.January, 12, 9, 30, 0, 0, time.UTC)

// NewEntry builds an entry recorded offset after Monday.
func NewEntry(offset time.Duration, terms ...string) *history.Entry {
	return history.NewEntry(Monday.Add(offset), "cerebras", "zai-glm-4.7", "shot.png", "raw text", terms)
}

// StoreBehaviour declares the specs every store must pass. newStore is
// called before each spec; the returned store is closed afterwards.
func StoreBehaviour(newStore func() history.Store) {
	var (
		store history.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = nil
		store = newStore()
	})

	AfterEach(func() {
		if store != nil {
			Expect(store.Close()).To(Succeed())
		}
	})

	It("rejects nil entries", func() {
		Expect(store.Put(ctx, nil)).To(MatchError(history.ErrNilEntry))
	})

	It("stores and lists entries oldest first", func() {
		later := NewEntry(2*time.Hour, "Bento grid")
		earlier := NewEntry(time.Hour, "Serif", "Muted palette")
		Expect(store.Put(ctx, later)).To(Succeed())
		Expect(store.Put(ctx, earlier)).To(Succeed())

		entries, err := store.List(ctx, history.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].ID).To(Equal(earlier.ID))
		Expect(entries[0].Terms).To(Equal([]string{"Serif", "Muted palette"}))
		Expect(entries[0].CreatedAt.Equal(earlier.CreatedAt)).To(BeTrue())
		Expect(entries[0].Provider).To(Equal("cerebras"))
		Expect(entries[0].ImagePath).To(Equal("shot.png"))
		Expect(entries[1].ID).To(Equal(later.ID))
	})

	It("returns an empty list for an empty store", func() {
		entries, err := store.List(ctx, history.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("filters by week and reports weeks in order", func() {
		Expect(store.Put(ctx, NewEntry(7*24*time.Hour, "next week"))).To(Succeed())
		Expect(store.Put(ctx, NewEntry(0, "this week"))).To(Succeed())

		weeks, err := store.Weeks(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(weeks).To(Equal([]string{"2026-W03", "2026-W04"}))

		entries, err := store.List(ctx, history.Filter{WeekID: "2026-W04"})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Terms).To(Equal([]string{"next week"}))
	})

	It("replaces a week", func() {
		Expect(store.Put(ctx, NewEntry(0, "old"))).To(Succeed())
		replacement := NewEntry(time.Minute, "new")

		Expect(store.Replace(ctx, "2026-W03", []*history.Entry{replacement})).To(Succeed())

		entries, err := store.List(ctx, history.Filter{WeekID: "2026-W03"})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Terms).To(Equal([]string{"new"}))
	})

	It("removes a week replaced with nothing", func() {
		Expect(store.Put(ctx, NewEntry(0, "gone"))).To(Succeed())
		Expect(store.Replace(ctx, "2026-W03", nil)).To(Succeed())

		weeks, err := store.Weeks(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(weeks).To(BeEmpty())
	})
}
