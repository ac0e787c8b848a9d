package geminicmder_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	geminicmder "github.com/papercomputeco/designlog/cmd/designlog/gemini"
	"github.com/papercomputeco/designlog/pkg/dotdir"
	"github.com/papercomputeco/designlog/pkg/gemini"
)

func newCmd(stdout, stderr *bytes.Buffer, args ...string) *cobra.Command {
	cmd := geminicmder.NewGeminiCmd()
	cmd.PersistentFlags().String("config-dir", "", "Override path to .designlog/ config directory")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("log-file", "", "Append JSON logs to this file")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd
}

var _ = Describe("Gemini command", func() {
	var (
		configDir      string
		stdout, stderr *bytes.Buffer
		server         *httptest.Server
		mu             sync.Mutex
		seen           []string
		keys           []string
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		seen = nil
		keys = nil
		GinkgoT().Setenv("GEMINI_API_KEY", "")

		// The first model is over quota, the second answers.
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			model := strings.TrimPrefix(r.URL.Path, "/")
			mu.Lock()
			seen = append(seen, model)
			keys = append(keys, r.URL.Query().Get("key"))
			mu.Unlock()

			if model == "gemini-2.0-flash" {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, `{"error":{"code":429,"status":"RESOURCE_EXHAUSTED"}}`)
				return
			}
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"1 2 3\n"}]}}]}`)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("falls back to the next model and prints its reply", func() {
		cmd := newCmd(stdout, stderr,
			"--config-dir", configDir,
			"--url", server.URL+"/{model}?key={key}",
			"--api-key", "AIza-test")
		Expect(cmd.Execute()).To(Succeed())

		Expect(stdout.String()).To(Equal("1 2 3\n"))
		Expect(stderr.String()).To(ContainSubstring("gemini-2.0-flash"))
		Expect(stderr.String()).To(ContainSubstring("gemini-1.5-flash"))

		mu.Lock()
		Expect(seen).To(Equal([]string{"gemini-2.0-flash", "gemini-1.5-flash"}))
		Expect(keys).To(HaveEach("AIza-test"))
		mu.Unlock()

		run, err := dotdir.NewManager().LoadLastRun(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Model).To(Equal("gemini-1.5-flash"))
		Expect(run.Text).To(Equal("1 2 3"))
	})

	It("stops after the primary model with --no-fallback", func() {
		cmd := newCmd(stdout, stderr,
			"--config-dir", configDir,
			"--url", server.URL+"/{model}?key={key}",
			"--api-key", "AIza-test",
			"--no-fallback")
		err := cmd.Execute()

		var fallbackErr *gemini.FallbackError
		Expect(errors.As(err, &fallbackErr)).To(BeTrue())
		Expect(fallbackErr.Attempts).To(HaveLen(1))
		Expect(fallbackErr.Attempts[0].Hint).NotTo(BeEmpty())
	})

	It("warns about placeholder keys but still sends them", func() {
		GinkgoT().Setenv("GEMINI_API_KEY", "AIzaXxxXxx")

		cmd := newCmd(stdout, stderr,
			"--config-dir", configDir,
			"--url", server.URL+"/{model}?key={key}")
		Expect(cmd.Execute()).To(Succeed())

		Expect(strings.Count(stderr.String(), "placeholder")).To(Equal(1))
		mu.Lock()
		Expect(keys).To(ContainElement("AIzaXxxXxx"))
		mu.Unlock()
	})
})
