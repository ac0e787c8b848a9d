// Package gemini calls the Google Gemini generateContent endpoint. The
// response shape differs from the OpenAI-compatible providers, so it is
// decoded here rather than by package chat; transport and the error
// taxonomy are shared.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/designlog/pkg/chat"
	"github.com/papercomputeco/designlog/pkg/logger"
)

// DefaultURLTemplate is the generateContent endpoint. {model} and {key} are
// substituted per call.
const DefaultURLTemplate = "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent?key={key}"

const (
	quotaHint = "quota exhausted; see https://ai.google.dev/gemini-api/docs/rate-limits or use another key"
	modelHint = "the model name may have changed; see https://ai.google.dev/gemini-api/docs/models"
)

var (
	// ErrEmptyResponse means the call succeeded but carried no text.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNoModels is returned when GenerateWithFallback gets no models.
	ErrNoModels = errors.New("no models to try")
)

// Attempt reports the outcome of one model in GenerateWithFallback.
type Attempt struct {
	Model string
	Err   error

	// Hint is remediation text for well-known failures, or empty.
	Hint string
}

// FallbackError is returned when every model failed.
type FallbackError struct {
	Attempts []Attempt
}

func (e *FallbackError) Error() string {
	models := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		models[i] = a.Model
	}
	return fmt.Sprintf("all models failed (%s)", strings.Join(models, ", "))
}

// Unwrap exposes every attempt's error to errors.Is and errors.As.
func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Client sends generateContent requests.
type Client struct {
	http        *chat.Client
	urlTemplate string
	timeout     time.Duration
	userAgent   string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithChatClient sets the transport.
func WithChatClient(c *chat.Client) Option {
	return func(g *Client) {
		g.http = c
	}
}

// WithURLTemplate overrides DefaultURLTemplate.
func WithURLTemplate(t string) Option {
	return func(g *Client) {
		if t != "" {
			g.urlTemplate = t
		}
	}
}

// WithTimeout sets the per-call idle timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Client) {
		g.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Client) {
		g.logger = l
	}
}

// NewClient returns a Client with a 30s timeout.
func NewClient(opts ...Option) *Client {
	g := &Client{
		urlTemplate: DefaultURLTemplate,
		timeout:     30 * time.Second,
		userAgent:   chat.DefaultUserAgent,
		logger:      logger.Nop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.http == nil {
		g.http = chat.NewClient(chat.WithLogger(g.logger))
	}

	return g
}

// Endpoint fills the URL template for model and key.
func (g *Client) Endpoint(model, apiKey string) string {
	return strings.NewReplacer(
		"{model}", url.PathEscape(model),
		"{key}", url.QueryEscape(apiKey),
	).Replace(g.urlTemplate)
}

// Generate calls one model. A response without text yields ErrEmptyResponse
// alongside the decoded result.
func (g *Client) Generate(ctx context.Context, model, apiKey string, req Request) (*Result, error) {
	out := chat.OutboundRequest{
		Endpoint: g.Endpoint(model, apiKey),
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
			"User-Agent":   g.userAgent,
		},
		Body:    req,
		Timeout: g.timeout,
	}

	body, err := g.http.Fetch(ctx, out)
	if err != nil {
		return nil, err
	}

	result, err := decodeResult(model, body)
	if err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if strings.TrimSpace(result.Text) == "" {
		return result, ErrEmptyResponse
	}

	return result, nil
}

// GenerateWithFallback tries models in order and returns the first non-empty
// result. Each failed model is reported to onAttempt (which may be nil)
// before the next one is tried. This is model fallback, not a retry: each
// model receives exactly one request. Context cancellation stops the loop.
func (g *Client) GenerateWithFallback(ctx context.Context, models []string, apiKey string, req Request, onAttempt func(Attempt)) (*Result, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}

	fallback := &FallbackError{}
	for _, model := range models {
		result, err := g.Generate(ctx, model, apiKey, req)
		if err == nil {
			return result, nil
		}

		attempt := Attempt{Model: model, Err: err, Hint: Hint(err)}
		fallback.Attempts = append(fallback.Attempts, attempt)

		g.logger.Debug("gemini model failed", "model", model, "error", err)
		if onAttempt != nil {
			onAttempt(attempt)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ctxErr, fallback)
		}
	}

	return nil, fallback
}

// Hint returns remediation text for quota (429) and unknown-model (404)
// responses.
func Hint(err error) string {
	var protoErr *chat.ProtocolError
	if !errors.As(err, &protoErr) {
		return ""
	}

	switch protoErr.StatusCode {
	case http.StatusTooManyRequests:
		return quotaHint
	case http.StatusNotFound:
		return modelHint
	default:
		return ""
	}
}
