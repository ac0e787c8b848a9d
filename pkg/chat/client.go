package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/designlog/pkg/logger"
	"github.com/papercomputeco/designlog/pkg/sse"
)

const (
	// maxResponseBodySize caps non-streaming response reads (10 MB).
	maxResponseBodySize int64 = 10 * 1024 * 1024

	// maxErrorBodySize caps how much of a non-2xx body is kept (1 MB).
	maxErrorBodySize int64 = 1024 * 1024
)

// Client sends OutboundRequests. It holds no per-request state.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client created with NewClient.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient returns a Client. Request timeouts come from each
// OutboundRequest, not from the http.Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete sends a non-streaming request and decodes
// choices[0].message.content from the response body.
func (c *Client) Complete(ctx context.Context, req OutboundRequest) (*Completion, error) {
	body, err := c.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	completion, err := decodeCompletion(body)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug("completion received",
		"model", completion.Model,
		"finish_reason", completion.FinishReason,
	)

	return completion, nil
}

// Fetch sends a non-streaming request and returns the raw 2xx body. It
// applies the same error taxonomy as Complete but leaves decoding to the
// caller, for providers whose response shape differs.
func (c *Client) Fetch(ctx context.Context, req OutboundRequest) ([]byte, error) {
	ex, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer ex.close()

	body, err := io.ReadAll(io.LimitReader(ex.body(), maxResponseBodySize))
	if err != nil {
		return nil, &TransportError{Op: "reading response", Err: ex.timer.wrap(err)}
	}

	c.logger.Debug("response received",
		"bytes", len(body),
		"elapsed", time.Since(ex.started),
	)

	return body, nil
}

// Stream sends a streaming request and hands every text delta to sink as it
// arrives. The returned Completion carries the concatenated text, including
// when an error interrupts the stream part-way. sink may be nil.
//
// Errors returned by sink are returned unchanged; read failures are reported
// as *TransportError. Malformed stream lines are skipped.
func (c *Client) Stream(ctx context.Context, req OutboundRequest, sink func(fragment string) error) (*Completion, error) {
	ex, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer ex.close()

	completion := &Completion{}
	var text strings.Builder
	var sinkErr error

	err = sse.Drain(ex.body(), func(fragment string) error {
		completion.Fragments++
		text.WriteString(fragment)
		if sink == nil {
			return nil
		}
		if err := sink(fragment); err != nil {
			sinkErr = err
			return err
		}
		return nil
	})
	completion.Text = text.String()

	if sinkErr != nil {
		return completion, sinkErr
	}
	if err != nil {
		return completion, &TransportError{Op: "reading stream", Err: ex.timer.wrap(err)}
	}

	c.logger.Debug("stream finished",
		"fragments", completion.Fragments,
		"elapsed", time.Since(ex.started),
	)

	return completion, nil
}

// exchange is one in-flight response whose body has not been closed yet.
type exchange struct {
	resp    *http.Response
	timer   *idleTimer
	cancel  context.CancelFunc
	started time.Time
}

func (e *exchange) body() io.Reader {
	return &idleReader{r: e.resp.Body, timer: e.timer}
}

func (e *exchange) close() {
	e.timer.stop()
	_ = e.resp.Body.Close()
	e.cancel()
}

// do sends the request and checks the status. On success the caller owns
// the returned exchange and must close it. Non-2xx responses are read,
// closed and returned as *ProtocolError.
func (c *Client) do(ctx context.Context, req OutboundRequest) (*exchange, error) {
	ctx, cancel := context.WithCancel(ctx)

	httpReq, err := req.httpRequest(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	c.logger.Debug("sending chat request",
		"endpoint", redactURL(req.Endpoint),
		"stream", req.Stream,
		"timeout", req.Timeout,
	)

	timer := newIdleTimer(req.Timeout, cancel)
	started := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		timer.stop()
		cancel()

		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}
		return nil, &TransportError{Op: "sending request", Err: timer.wrap(err)}
	}
	timer.touch()

	ex := &exchange{resp: resp, timer: timer, cancel: cancel, started: started}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer ex.close()

		body, err := io.ReadAll(io.LimitReader(ex.body(), maxErrorBodySize))
		if err != nil {
			return nil, &TransportError{Op: "reading error response", Err: timer.wrap(err)}
		}

		c.logger.Debug("provider returned an error status",
			"status", resp.Status,
			"bytes", len(body),
		)

		return nil, &ProtocolError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header.Clone(),
			Body:       string(body),
		}
	}

	return ex, nil
}

// redactURL drops the query string, which may carry an API key.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	return u.String()
}
