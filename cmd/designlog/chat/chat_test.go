package chatcmder_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/designlog/cmd/designlog/chat"
	"github.com/papercomputeco/designlog/pkg/chat"
	"github.com/papercomputeco/designlog/pkg/dotdir"
)

// fakeProvider records the last request body and answers with handler.
type fakeProvider struct {
	mu      sync.Mutex
	body    map[string]any
	headers http.Header
	server  *httptest.Server
}

func newFakeProvider(respond func(w http.ResponseWriter)) *fakeProvider {
	f := &fakeProvider{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)

		f.mu.Lock()
		f.body = body
		f.headers = r.Header.Clone()
		f.mu.Unlock()

		respond(w)
	}))
	return f
}

func (f *fakeProvider) lastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

func (f *fakeProvider) lastHeaders() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers
}

func sse(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, l := range lines {
		_, _ = io.WriteString(w, l+"\n")
	}
}

func jsonReply(content string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":`+mustJSON(content)+`}}]}`)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}

func newCmd(provider string, stdout, stderr *bytes.Buffer, args ...string) *cobra.Command {
	cmd := chatcmder.NewChatCmd(provider)
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

var _ = Describe("Chat command", func() {
	var (
		configDir      string
		stdout, stderr *bytes.Buffer
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
		GinkgoT().Setenv("CEREBRAS_API_KEY", "")
		GinkgoT().Setenv("NVIDIA_API_KEY", "")
		GinkgoT().Setenv("DESIGNLOG_DB", "")
	})

	It("registers provider flags", func() {
		cmd := chatcmder.NewChatCmd("nvidia")
		Expect(cmd.Use).To(Equal("nvidia"))
		for _, name := range []string{"model", "url", "prompt", "stream", "thinking", "image", "api-key", "render", "record"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
		Expect(chatcmder.NewChatCmd("cerebras").Flags().Lookup("thinking")).To(BeNil())
	})

	It("streams the reply to stdout and saves the last run", func() {
		provider := newFakeProvider(func(w http.ResponseWriter) {
			sse(w,
				`data: {"choices":[{"delta":{"content":"He"}}]}`,
				`data: {"choices":[{"delta":{"content":"llo"}}]}`,
				`data: [DONE]`,
			)
		})
		defer provider.server.Close()

		cmd := newCmd("cerebras", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL, "--api-key", "csk-test")
		Expect(cmd.Execute()).To(Succeed())

		Expect(stdout.String()).To(Equal("Hello\n"))
		Expect(stderr.String()).To(ContainSubstring("request complete"))

		body := provider.lastBody()
		Expect(body).To(HaveKeyWithValue("model", "zai-glm-4.7"))
		Expect(body).To(HaveKeyWithValue("stream", true))
		Expect(body).To(HaveKeyWithValue("max_tokens", BeNumerically("==", 65000)))
		Expect(provider.lastHeaders().Get("Authorization")).To(Equal("Bearer csk-test"))
		Expect(provider.lastHeaders().Get("Accept")).To(Equal("text/event-stream"))

		run, err := dotdir.NewManager().LoadLastRun(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.Text).To(Equal("Hello"))
		Expect(run.Provider).To(Equal("cerebras"))
	})

	It("prints a non-streaming reply", func() {
		provider := newFakeProvider(jsonReply("A cat on a sofa"))
		defer provider.server.Close()

		cmd := newCmd("nvidia", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL, "--api-key", "nvapi-test")
		Expect(cmd.Execute()).To(Succeed())

		Expect(stdout.String()).To(ContainSubstring("A cat on a sofa"))
		Expect(provider.lastBody()).To(HaveKeyWithValue("stream", false))
		Expect(provider.lastBody()).To(HaveKeyWithValue("chat_template_kwargs", HaveKeyWithValue("thinking", false)))
		Expect(provider.lastHeaders().Get("Accept")).To(Equal("application/json"))
	})

	It("attaches an image as a data URL after the text part", func() {
		provider := newFakeProvider(jsonReply("ok"))
		defer provider.server.Close()

		imgPath := filepath.Join(GinkgoT().TempDir(), "shot.png")
		f, err := os.Create(imgPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4)))).To(Succeed())
		Expect(f.Close()).To(Succeed())

		cmd := newCmd("cerebras", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL, "--api-key", "k",
			"--stream=false", "--image", imgPath, "--prompt", "What is in this picture?")
		Expect(cmd.Execute()).To(Succeed())

		messages := provider.lastBody()["messages"].([]any)
		content := messages[0].(map[string]any)["content"].([]any)
		Expect(content).To(HaveLen(2))
		Expect(content[0]).To(HaveKeyWithValue("text", "What is in this picture?"))
		Expect(content[1]).To(HaveKeyWithValue("type", "image_url"))
		url := content[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		Expect(url).To(HavePrefix("data:image/png;base64,"))
	})

	It("sends text only when the image is missing", func() {
		provider := newFakeProvider(jsonReply("ok"))
		defer provider.server.Close()

		cmd := newCmd("cerebras", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL, "--api-key", "k",
			"--stream=false", "--image", filepath.Join(configDir, "nope.jpg"))
		Expect(cmd.Execute()).To(Succeed())

		Expect(stderr.String()).To(ContainSubstring("not found, sending text only"))
		messages := provider.lastBody()["messages"].([]any)
		Expect(messages[0].(map[string]any)["content"]).To(HaveLen(1))
	})

	It("returns the provider's block verbatim", func() {
		provider := newFakeProvider(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "error code: 1010")
		})
		defer provider.server.Close()

		cmd := newCmd("cerebras", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL, "--api-key", "k")
		err := cmd.Execute()

		var protoErr *chat.ProtocolError
		Expect(errors.As(err, &protoErr)).To(BeTrue())
		Expect(protoErr.EdgeBlocked()).To(BeTrue())
		Expect(protoErr.Body).To(Equal("error code: 1010"))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("fails before any request when no key is configured", func() {
		provider := newFakeProvider(jsonReply("unreachable"))
		defer provider.server.Close()

		cmd := newCmd("cerebras", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL)
		err := cmd.Execute()

		var cfgErr *chat.ConfigurationError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(provider.lastBody()).To(BeNil())
	})

	It("files terms with --record", func() {
		provider := newFakeProvider(jsonReply(`["Bento grid", "Glassmorphism"]`))
		defer provider.server.Close()

		cmd := newCmd("nvidia", stdout, stderr,
			"--config-dir", configDir, "--url", provider.server.URL, "--api-key", "k",
			"--record", "--history-driver", "inmemory")
		Expect(cmd.Execute()).To(Succeed())

		Expect(stderr.String()).To(ContainSubstring("Filed 2 terms"))
	})
})
