package terms_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/terms"
)

var _ = Describe("Parse", func() {
	It("returns an empty list for blank text", func() {
		Expect(terms.Parse("", 0)).To(BeEmpty())
		Expect(terms.Parse("  \n ", 0)).To(BeEmpty())
	})

	It("reads a JSON array", func() {
		Expect(terms.Parse(`["Brutalism", "Swiss grid", "Serif"]`, 0)).
			To(Equal([]string{"Brutalism", "Swiss grid", "Serif"}))
	})

	It("reads an object with a terms array", func() {
		Expect(terms.Parse(`{"terms": ["Glassmorphism", 3, "Bento layout"]}`, 0)).
			To(Equal([]string{"Glassmorphism", "Bento layout"}))
	})

	It("unwraps a fenced code block", func() {
		text := "Here you go:\n```json\n[\"Neumorphism\", \"Dark mode\"]\n```\n"
		Expect(terms.Parse(text, 0)).To(Equal([]string{"Neumorphism", "Dark mode"}))
	})

	It("repairs slightly broken JSON", func() {
		Expect(terms.Parse(`["Minimalism", "Flat design",]`, 0)).
			To(Equal([]string{"Minimalism", "Flat design"}))
	})

	It("falls back to splitting on commas and newlines", func() {
		Expect(terms.Parse("Minimalism, 'Flat design'\nSkeuomorphism", 0)).
			To(Equal([]string{"Minimalism", "Flat design", "Skeuomorphism"}))
	})

	It("keeps at most max terms", func() {
		Expect(terms.Parse(`["a","b","c","d"]`, 2)).To(Equal([]string{"a", "b"}))
	})

	It("defaults to ten terms", func() {
		Expect(terms.Parse(`["1","2","3","4","5","6","7","8","9","10","11","12"]`, 0)).
			To(HaveLen(terms.DefaultMax))
	})
})
