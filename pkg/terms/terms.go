// Package terms extracts a list of design terms from free-form model output.
package terms

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// DefaultMax is the number of terms kept when the caller passes zero.
const DefaultMax = 10

var (
	fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	splitPattern = regexp.MustCompile(`[,\n]`)
)

// Parse returns up to max terms found in text. It accepts a JSON array of
// strings, an object with a "terms" array, either wrapped in a markdown code
// fence, and falls back to splitting on commas and newlines.
func Parse(text string, max int) []string {
	if max <= 0 {
		max = DefaultMax
	}

	raw := strings.TrimSpace(text)
	if raw == "" {
		return []string{}
	}
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}

	if out, ok := fromJSON(raw); ok {
		return limit(out, max)
	}
	if looksLikeJSON(raw) {
		if repaired, err := jsonrepair.JSONRepair(raw); err == nil {
			if out, ok := fromJSON(repaired); ok {
				return limit(out, max)
			}
		}
	}

	return limit(split(raw), max)
}

func looksLikeJSON(raw string) bool {
	return strings.HasPrefix(raw, "[") || strings.HasPrefix(raw, "{")
}

func fromJSON(raw string) ([]string, bool) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}

	switch t := v.(type) {
	case []any:
		return stringItems(t), true
	case map[string]any:
		if items, ok := t["terms"].([]any); ok {
			return stringItems(items), true
		}
	}
	return nil, false
}

// stringItems keeps the non-blank string items.
func stringItems(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func split(raw string) []string {
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	out := []string{}
	for _, part := range splitPattern.Split(raw, -1) {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"'`)
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func limit(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}
