// Package chat builds and sends single-shot requests to OpenAI-compatible
// chat completion endpoints (Cerebras, NVIDIA NIM) and decodes either the
// complete JSON response or its Server-Sent Events stream.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Roles used in Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part types for multimodal user messages.
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// DefaultUserAgent identifies designlog to upstream providers. Some edge
// networks reject requests that carry no User-Agent at all.
const DefaultUserAgent = "DesignLog/1.0 (Go)"

// Message is a single chat message. Content is either a string or a
// []ContentPart for multimodal messages.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one typed element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image, usually as a base64 data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// TextMessage creates a message with plain string content.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// UserMessage creates a user message whose content is a text part followed,
// when dataURL is non-empty, by an image_url part.
func UserMessage(prompt, dataURL string) Message {
	parts := []ContentPart{{Type: PartText, Text: prompt}}
	if dataURL != "" {
		parts = append(parts, ContentPart{
			Type:     PartImageURL,
			ImageURL: &ImageURL{URL: dataURL},
		})
	}

	return Message{Role: RoleUser, Content: parts}
}

// CompletionRequest is the JSON body of a chat completion call.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`

	// ChatTemplateKwargs is forwarded verbatim (NVIDIA NIM uses it to toggle
	// "thinking" on reasoning models). Omitted when nil.
	ChatTemplateKwargs map[string]any `json:"chat_template_kwargs,omitempty"`
}

// OutboundRequest is everything needed to issue one POST. It is built once by
// NewOutboundRequest, sent once and never reused.
type OutboundRequest struct {
	Endpoint string
	Headers  map[string]string
	Body     any
	Stream   bool
	Timeout  time.Duration
}

// RequestOptions are the optional inputs to NewOutboundRequest.
type RequestOptions struct {
	// Timeout bounds connection setup and every wait for response bytes.
	// Zero disables it.
	Timeout time.Duration

	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
}

// NewOutboundRequest assembles the headers for a JSON POST authorised with a
// bearer token. When stream is true the request asks for text/event-stream.
func NewOutboundRequest(endpoint, apiKey string, body any, stream bool, opts RequestOptions) OutboundRequest {
	accept := "application/json"
	if stream {
		accept = "text/event-stream"
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return OutboundRequest{
		Endpoint: endpoint,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + apiKey,
			"Accept":        accept,
			"User-Agent":    userAgent,
		},
		Body:    body,
		Stream:  stream,
		Timeout: opts.Timeout,
	}
}

// httpRequest materialises the request. The body is marshalled here so the
// OutboundRequest itself stays a plain value.
func (r OutboundRequest) httpRequest(ctx context.Context) (*http.Request, error) {
	payload, err := json.Marshal(r.Body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
