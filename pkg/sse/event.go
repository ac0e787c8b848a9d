// Package sse provides a minimal, purpose-built consumer for the Server-Sent
// Events streams returned by OpenAI-compatible chat completion endpoints.
//
// The consumer is line oriented: every complete line starting with "data: "
// carries either one JSON chunk or the "[DONE]" sentinel. Anything else on
// the wire (blank keep-alive lines, comments, "event:" or "id:" fields) is
// ignored.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "encoding/json"

const (
	// DataPrefix is the literal prefix every event line must start with.
	DataPrefix = "data: "

	// DoneSentinel is the payload that terminates a completion stream.
	DoneSentinel = "[DONE]"
)

// Event is a single parsed "data: " line.
type Event struct {
	// RawPayload is the trimmed text following the "data: " prefix.
	RawPayload string

	// Delta is choices[0].delta.content when the payload decoded and carried
	// one. Nil for the sentinel, for malformed JSON and for chunks without
	// content (role-only or finish_reason chunks).
	Delta *string
}

// Done reports whether the event is the end-of-stream sentinel.
func (e Event) Done() bool {
	return e.RawPayload == DoneSentinel
}

// chunkView is a tolerant view over an OpenAI streaming chunk. Every level is
// optional so absent keys decode to nil instead of failing.
type chunkView struct {
	Choices []struct {
		Delta *struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// ParseEvent decodes a payload taken from a "data: " line. It never fails:
// payloads that are not JSON objects, or lack the delta path, produce an
// Event with a nil Delta.
func ParseEvent(payload string) Event {
	ev := Event{RawPayload: payload}
	if ev.Done() {
		return ev
	}

	var view chunkView
	if err := json.Unmarshal([]byte(payload), &view); err != nil {
		return ev
	}

	if len(view.Choices) == 0 || view.Choices[0].Delta == nil {
		return ev
	}

	ev.Delta = view.Choices[0].Delta.Content
	return ev
}
