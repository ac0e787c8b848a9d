package utils

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Truncate shortens s to maxLen display cells and appends "...". Escape
// sequences and wide runes are measured by their terminal width.
func Truncate(s string, maxLen int) string {
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen+3, "...")
}

// OneLine joins the lines of s with single spaces for table previews.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
