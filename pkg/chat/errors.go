package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTimeout is wrapped by a TransportError when the configured request
// timeout elapsed while waiting on the provider.
var ErrTimeout = errors.New("request timed out")

// EdgeBlockCode is the Cloudflare error code returned when a request is
// blocked at the edge (region, IP or User-Agent policy).
const EdgeBlockCode = "1010"

// ConfigurationError means no usable credential was found. It is raised
// before any network call.
type ConfigurationError struct {
	Provider string
	Hint     string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "no API key configured"
	}
	return "no API key configured for " + e.Provider
}

// TransportError wraps connection, DNS and timeout failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was the request timeout.
func (e *TransportError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// ProtocolError is a non-2xx response. Header and Body are kept verbatim so
// provider block reasons can be shown to the user unmodified.
type ProtocolError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return "HTTP " + e.Status
	}
	return fmt.Sprintf("HTTP %s: %s", e.Status, e.Body)
}

// EdgeBlocked reports whether the response is a 403 carrying the Cloudflare
// 1010 block code.
func (e *ProtocolError) EdgeBlocked() bool {
	return e.StatusCode == http.StatusForbidden && strings.Contains(e.Body, EdgeBlockCode)
}
