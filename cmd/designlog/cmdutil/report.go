package cmdutil

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/papercomputeco/designlog/pkg/chat"
	"github.com/papercomputeco/designlog/pkg/cliui"
	"github.com/papercomputeco/designlog/pkg/credentials"
	"github.com/papercomputeco/designlog/pkg/gemini"
)

const edgeBlockHint = "Error 1010 is usually a Cloudflare block (region, IP or User-Agent). " +
	"Try another network or proxy, or check whether the API is restricted in your region."

// ReportError writes a human-readable diagnostic for err. Provider failures
// get their status, headers and verbatim body; configuration failures get
// remediation steps.
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}

	var (
		cfgErr      *chat.ConfigurationError
		fallbackErr *gemini.FallbackError
		protoErr    *chat.ProtocolError
		transErr    *chat.TransportError
	)

	fmt.Fprintln(w)
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, cfgErr.Error())
		for line := range strings.SplitSeq(cfgErr.Hint, "\n") {
			if line != "" {
				fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(line))
			}
		}

	case errors.As(err, &fallbackErr):
		fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, fallbackErr.Error())
		for _, a := range fallbackErr.Attempts {
			ReportAttempt(w, a)
		}

	case errors.As(err, &protoErr):
		ReportProtocolError(w, protoErr)

	case errors.As(err, &transErr):
		if transErr.Timeout() {
			fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, "request timed out waiting for the provider")
		} else {
			fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, "could not reach the provider")
		}
		fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render(transErr.Error()))

	default:
		fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(err.Error()))
	}
	fmt.Fprintln(w)
}

// ReportProtocolError prints the status line, every response header and the
// full body as received.
func ReportProtocolError(w io.Writer, e *chat.ProtocolError) {
	fmt.Fprintf(w, "  %s HTTP %s\n", cliui.FailMark, e.Status)

	if len(e.Header) > 0 {
		fmt.Fprintf(w, "  %s\n", cliui.HeaderStyle.Render("--- response headers ---"))
		keys := make([]string, 0, len(e.Header))
		for k := range e.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range e.Header[k] {
				fmt.Fprintf(w, "    %s: %s\n", cliui.KeyStyle.Render(k), v)
			}
		}
	}

	fmt.Fprintf(w, "  %s\n", cliui.HeaderStyle.Render("--- response body ---"))
	if e.Body == "" {
		fmt.Fprintln(w, "(empty)")
	} else {
		fmt.Fprintln(w, e.Body)
	}
	fmt.Fprintf(w, "  %s\n", cliui.HeaderStyle.Render("---"))

	if e.EdgeBlocked() {
		fmt.Fprintf(w, "  %s %s\n", cliui.WarnStyle.Render("!"), edgeBlockHint)
	}
}

// ReportAttempt prints one failed fallback model with its hint.
func ReportAttempt(w io.Writer, a gemini.Attempt) {
	fmt.Fprintf(w, "  %s %s %s\n",
		cliui.FailMark,
		cliui.NameStyle.Render(a.Model),
		cliui.DimStyle.Render(a.Err.Error()),
	)
	if a.Hint != "" {
		fmt.Fprintf(w, "    %s %s\n", cliui.WarnStyle.Render("!"), a.Hint)
	}
}

// WarnPlaceholder prints a warning when a resolved key still carries the
// documentation placeholder. The key is used regardless.
func WarnPlaceholder(w io.Writer, res *credentials.Resolution) {
	if res == nil || !res.Placeholder() {
		return
	}
	fmt.Fprintf(w, "  %s API key from %s contains the placeholder %q and is probably invalid; trying anyway.\n",
		cliui.WarnStyle.Render("!"), res.Source, credentials.PlaceholderMarker)
}
