package sse

import (
	"bytes"
	"strings"
)

// Collector turns arbitrarily chunked response bytes into an ordered sequence
// of text fragments.
//
// ┌──────────────────┐
// │  response body   │  chunks of any size, no line alignment
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ Collector.buf    │  bytes not yet terminated by '\n'
// └──────────────────┘
// │  complete lines only
// ▼
// ┌──────────────────┐
// │  "data: " lines  │──▶ fragments (choices[0].delta.content)
// └──────────────────┘
//
// A Collector is owned by a single consuming call and is not safe for
// concurrent use.
type Collector struct {
	buf  []byte
	done bool
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Done reports whether the "[DONE]" sentinel has been observed. Callers stop
// feeding the Collector once Done returns true.
func (c *Collector) Done() bool {
	return c.done
}

// Buffered returns the number of bytes held that do not yet form a complete
// line.
func (c *Collector) Buffered() int {
	return len(c.buf)
}

// Consume appends chunk to the internal buffer and returns the fragments
// carried by every line completed by it, in stream order.
//
// When a line carries the "[DONE]" sentinel the Collector is marked done, any
// bytes still buffered after that line are discarded and no further lines of
// the chunk are processed. Consume on a done Collector is a no-op.
func (c *Collector) Consume(chunk []byte) []string {
	if c.done {
		return nil
	}

	c.buf = append(c.buf, chunk...)

	var fragments []string
	for {
		idx := bytes.IndexByte(c.buf, '\n')
		if idx < 0 {
			break
		}

		line := strings.TrimSpace(string(c.buf[:idx]))
		c.buf = c.buf[idx+1:]

		payload, ok := strings.CutPrefix(line, DataPrefix)
		if !ok {
			// Blank keep-alive lines, ": comments" and other SSE fields.
			continue
		}

		ev := ParseEvent(strings.TrimSpace(payload))
		if ev.Done() {
			c.done = true
			c.buf = nil
			return fragments
		}

		if ev.Delta != nil && *ev.Delta != "" {
			fragments = append(fragments, *ev.Delta)
		}
	}

	// Compact so the consumed prefix can be collected.
	c.buf = append([]byte(nil), c.buf...)

	return fragments
}
