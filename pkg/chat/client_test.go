package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/chat"
)

// streamHandler writes each chunk and flushes between them.
func streamHandler(chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			_, _ = io.WriteString(w, chunk)
			flusher.Flush()
		}
	}
}

func newRequest(url string, stream bool, timeout time.Duration) chat.OutboundRequest {
	body := chat.CompletionRequest{
		Model:    "zai-glm-4.7",
		Messages: []chat.Message{chat.UserMessage("hello", "")},
		Stream:   stream,
	}
	return chat.NewOutboundRequest(url, "test-key", body, stream, chat.RequestOptions{Timeout: timeout})
}

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		client  *chat.Client
		ctx     context.Context
		release chan struct{}
	)

	// hang reads the request body and then blocks until the client goes
	// away or the spec ends, so server.Close never waits on it.
	hang := func(w http.ResponseWriter, r *http.Request, prefix string) {
		_, _ = io.Copy(io.Discard, r.Body)
		if prefix != "" {
			_, _ = io.WriteString(w, prefix)
			w.(http.Flusher).Flush()
		}
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}

	BeforeEach(func() {
		client = chat.NewClient()
		ctx = context.Background()
		release = make(chan struct{})
	})

	AfterEach(func() {
		close(release)
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("Stream", func() {
		It("concatenates the streamed deltas", func() {
			server = httptest.NewServer(streamHandler(
				`data: {"choices":[{"delta":{"content":"He"}}]}`+"\n",
				`data: {"choices":[{"delta":{"content":"llo"}}]}`+"\n",
				"data: [DONE]\n",
			))

			var got []string
			completion, err := client.Stream(ctx, newRequest(server.URL, true, time.Second), func(f string) error {
				got = append(got, f)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]string{"He", "llo"}))
			Expect(completion.Text).To(Equal("Hello"))
			Expect(completion.Fragments).To(Equal(2))
		})

		It("sends the JSON body and headers", func() {
			var (
				gotHeader http.Header
				gotBody   map[string]any
			)
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotHeader = r.Header.Clone()
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				_, _ = io.WriteString(w, "data: [DONE]\n")
			}))

			_, err := client.Stream(ctx, newRequest(server.URL, true, time.Second), nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(gotHeader.Get("Authorization")).To(Equal("Bearer test-key"))
			Expect(gotHeader.Get("Accept")).To(Equal("text/event-stream"))
			Expect(gotHeader.Get("Content-Type")).To(Equal("application/json"))
			Expect(gotBody).To(HaveKeyWithValue("model", "zai-glm-4.7"))
			Expect(gotBody).To(HaveKeyWithValue("stream", true))
			Expect(gotBody).To(HaveKey("messages"))
		})

		It("skips malformed lines and keep-alives", func() {
			server = httptest.NewServer(streamHandler(
				": keep-alive\n\n",
				"data: {not valid json\n",
				`data: {"choices":[{"delta":{"content":"ok"}}]}`+"\n",
			))

			completion, err := client.Stream(ctx, newRequest(server.URL, true, time.Second), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Text).To(Equal("ok"))
		})

		It("returns sink errors unchanged", func() {
			server = httptest.NewServer(streamHandler(`data: {"choices":[{"delta":{"content":"x"}}]}` + "\n"))
			stop := errors.New("stdout closed")

			_, err := client.Stream(ctx, newRequest(server.URL, true, time.Second), func(string) error { return stop })
			Expect(err).To(MatchError(stop))
		})

		It("reports a stalled stream as a timeout and keeps the partial text", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hang(w, r, `data: {"choices":[{"delta":{"content":"He"}}]}`+"\n")
			}))

			completion, err := client.Stream(ctx, newRequest(server.URL, true, 100*time.Millisecond), nil)
			Expect(err).To(HaveOccurred())

			var transportErr *chat.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(transportErr.Timeout()).To(BeTrue())
			Expect(completion.Text).To(Equal("He"))
		})
	})

	Describe("Fetch", func() {
		It("returns the raw body without decoding it", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"candidates":[]}`)
			}))

			body, err := client.Fetch(ctx, newRequest(server.URL, false, time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal(`{"candidates":[]}`))
		})
	})

	Describe("Complete", func() {
		It("decodes choices[0].message.content", func() {
			var accept string
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				accept = r.Header.Get("Accept")
				_, _ = io.WriteString(w, `{
					"model": "moonshotai/kimi-k2.5",
					"choices": [{"message": {"role": "assistant", "content": "[\"grid\"]"}, "finish_reason": "stop"}],
					"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
				}`)
			}))

			completion, err := client.Complete(ctx, newRequest(server.URL, false, time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(accept).To(Equal("application/json"))
			Expect(completion.Text).To(Equal(`["grid"]`))
			Expect(completion.Model).To(Equal("moonshotai/kimi-k2.5"))
			Expect(completion.FinishReason).To(Equal("stop"))
			Expect(completion.Usage.TotalTokens).To(Equal(5))
			Expect(completion.Raw).NotTo(BeEmpty())
		})

		It("joins text parts when content is an array", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`)
			}))

			completion, err := client.Complete(ctx, newRequest(server.URL, false, time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Text).To(Equal("ab"))
		})

		It("treats missing choices as empty text", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"id":"x"}`)
			}))

			completion, err := client.Complete(ctx, newRequest(server.URL, false, time.Second))
			Expect(err).NotTo(HaveOccurred())
			Expect(completion.Text).To(BeEmpty())
			Expect(string(completion.Raw)).To(Equal(`{"id":"x"}`))
		})

		It("fails on a body that is not JSON", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "<html>")
			}))

			_, err := client.Complete(ctx, newRequest(server.URL, false, time.Second))
			Expect(err).To(MatchError(ContainSubstring("decoding response")))
		})
	})

	Describe("error taxonomy", func() {
		It("surfaces an edge block body verbatim as a ProtocolError", func() {
			blockBody := "error code: 1010"
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Cf-Ray", "8a1b2c3d4e5f-LAX")
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, blockBody)
			}))

			_, err := client.Stream(ctx, newRequest(server.URL, true, time.Second), nil)

			var protoErr *chat.ProtocolError
			Expect(errors.As(err, &protoErr)).To(BeTrue())
			Expect(protoErr.StatusCode).To(Equal(http.StatusForbidden))
			Expect(protoErr.Status).To(Equal("403 Forbidden"))
			Expect(protoErr.Body).To(Equal(blockBody))
			Expect(protoErr.Header.Get("Cf-Ray")).To(Equal("8a1b2c3d4e5f-LAX"))
			Expect(protoErr.EdgeBlocked()).To(BeTrue())
			Expect(protoErr.Error()).To(ContainSubstring(blockBody))
		})

		It("does not flag other 403 responses as edge blocks", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
			}))

			_, err := client.Complete(ctx, newRequest(server.URL, false, time.Second))

			var protoErr *chat.ProtocolError
			Expect(errors.As(err, &protoErr)).To(BeTrue())
			Expect(protoErr.EdgeBlocked()).To(BeFalse())
		})

		It("reports unreachable endpoints as TransportError", func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			url := dead.URL
			dead.Close()

			_, err := client.Complete(ctx, newRequest(url, false, time.Second))

			var transportErr *chat.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(transportErr.Timeout()).To(BeFalse())
		})

		It("keeps query-string keys out of transport errors", func() {
			dead := httptest.NewServer(http.NotFoundHandler())
			url := dead.URL + "/v1beta/models/m:generateContent?key=AIza-secret"
			dead.Close()

			_, err := client.Fetch(ctx, chat.OutboundRequest{Endpoint: url, Body: map[string]any{}})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).NotTo(ContainSubstring("AIza-secret"))
		})

		It("reports a slow provider as a timeout", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hang(w, r, "")
			}))

			_, err := client.Complete(ctx, newRequest(server.URL, false, 50*time.Millisecond))

			var transportErr *chat.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())
			Expect(transportErr.Timeout()).To(BeTrue())
			Expect(errors.Is(err, chat.ErrTimeout)).To(BeTrue())
		})

		It("describes missing credentials", func() {
			err := &chat.ConfigurationError{Provider: "cerebras"}
			Expect(err.Error()).To(Equal("no API key configured for cerebras"))
			Expect(strings.Contains(err.Error(), "cerebras")).To(BeTrue())
		})
	})
})
