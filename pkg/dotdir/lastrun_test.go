package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/dotdir"
)

var _ = Describe("dotdir.Manager last run", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when nothing was saved", func() {
		run, err := m.LoadLastRun(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(run).To(BeNil())
	})

	It("round-trips a saved run", func() {
		at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
		Expect(m.SaveLastRun(&dotdir.LastRun{
			Provider:  "nvidia",
			Model:     "moonshotai/kimi-k2.5",
			ImagePath: "shot.png",
			Text:      `["grid","serif"]`,
			At:        at,
		}, tmpDir)).To(Succeed())

		run, err := m.LoadLastRun(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Provider).To(Equal("nvidia"))
		Expect(run.Text).To(Equal(`["grid","serif"]`))
		Expect(run.At.Equal(at)).To(BeTrue())
	})

	It("rejects a nil run", func() {
		Expect(m.SaveLastRun(nil, tmpDir)).To(HaveOccurred())
	})

	It("returns an error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "last_run.json"), []byte("not json"), 0o600)).To(Succeed())

		run, err := m.LoadLastRun(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(run).To(BeNil())
	})

	It("clears the saved run and tolerates a missing file", func() {
		Expect(m.SaveLastRun(&dotdir.LastRun{Provider: "gemini"}, tmpDir)).To(Succeed())
		Expect(m.ClearLastRun(tmpDir)).To(Succeed())
		Expect(filepath.Join(tmpDir, "last_run.json")).NotTo(BeAnExistingFile())
		Expect(m.ClearLastRun(tmpDir)).To(Succeed())
	})
})
