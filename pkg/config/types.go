package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Provider names. They double as the TOML table names under [providers].
const (
	ProviderCerebras = "cerebras"
	ProviderNVIDIA   = "nvidia"
	ProviderGemini   = "gemini"
)

// ProviderNames lists the supported providers in display order.
func ProviderNames() []string {
	return []string{ProviderCerebras, ProviderNVIDIA, ProviderGemini}
}

// Config represents the persistent designlog configuration stored as
// config.toml in the .designlog/ directory.
type Config struct {
	Version     int               `toml:"version"`
	Default     DefaultConfig     `toml:"default"`
	Providers   ProvidersConfig   `toml:"providers"`
	History     HistoryConfig     `toml:"history"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Image       ImageConfig       `toml:"image"`
}

// DefaultConfig holds settings used when a command is not told otherwise.
type DefaultConfig struct {
	Provider string `toml:"provider,omitempty"`
}

// ProvidersConfig holds one table per provider.
type ProvidersConfig struct {
	Cerebras ProviderConfig `toml:"cerebras"`
	NVIDIA   ProviderConfig `toml:"nvidia"`
	Gemini   ProviderConfig `toml:"gemini"`
}

// Get returns the table for the named provider.
func (p *ProvidersConfig) Get(name string) (*ProviderConfig, error) {
	switch name {
	case ProviderCerebras:
		return &p.Cerebras, nil
	case ProviderNVIDIA:
		return &p.NVIDIA, nil
	case ProviderGemini:
		return &p.Gemini, nil
	default:
		return nil, fmt.Errorf("unknown provider: %q (available: %s)", name, strings.Join(ProviderNames(), ", "))
	}
}

// ProviderConfig describes how requests to one provider are built. Pointer
// fields distinguish "unset" from an explicit zero; nil pointers are not
// written to config.toml.
type ProviderConfig struct {
	URL string `toml:"url,omitempty"`

	// Model is the model id sent in the request body. For Gemini it is the
	// first model tried; FallbackModels are tried after it in order.
	Model          string   `toml:"model,omitempty"`
	FallbackModels []string `toml:"fallback_models,omitempty"`

	Temperature *float64 `toml:"temperature"`
	TopP        *float64 `toml:"top_p"`
	MaxTokens   int      `toml:"max_tokens,omitempty"`
	Stream      *bool    `toml:"stream"`
	Thinking    *bool    `toml:"thinking"`

	// Timeout is a Go duration string such as "60s".
	Timeout string `toml:"timeout,omitempty"`

	Prompt    string `toml:"prompt,omitempty"`
	MaxTerms  int    `toml:"max_terms,omitempty"`
	UserAgent string `toml:"user_agent,omitempty"`

	// FallbackKey is used when no other credential source has a key.
	FallbackKey string `toml:"fallback_key,omitempty"`
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (p *ProviderConfig) TimeoutDuration() (time.Duration, error) {
	if p.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", p.Timeout, err)
	}

	return d, nil
}

// Models returns Model followed by FallbackModels, skipping blanks.
func (p *ProviderConfig) Models() []string {
	models := make([]string, 0, 1+len(p.FallbackModels))
	for _, m := range append([]string{p.Model}, p.FallbackModels...) {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// HistoryConfig selects the history store.
type HistoryConfig struct {
	// Driver is one of "sqlite", "postgres" or "inmemory".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig selects where entry-recorded events are published.
type EventStreamConfig struct {
	// Provider is "kafka" or empty for none.
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// ImageConfig controls how attached images are prepared.
type ImageConfig struct {
	// MaxDimension downsizes images whose longest side exceeds it. Zero
	// sends images at their original size.
	MaxDimension int `toml:"max_dimension,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = buildConfigKeys()

func buildConfigKeys() map[string]configKeyInfo {
	keys := map[string]configKeyInfo{
		"default.provider": {
			get: func(c *Config) string { return c.Default.Provider },
			set: func(c *Config, v string) error {
				if _, err := c.Providers.Get(v); err != nil {
					return err
				}
				c.Default.Provider = v
				return nil
			},
		},
		"history.driver": {
			get: func(c *Config) string { return c.History.Driver },
			set: func(c *Config, v string) error { c.History.Driver = v; return nil },
		},
		"history.sqlite_path": {
			get: func(c *Config) string { return c.History.SQLitePath },
			set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
		},
		"history.postgres_dsn": {
			get: func(c *Config) string { return c.History.PostgresDSN },
			set: func(c *Config, v string) error { c.History.PostgresDSN = v; return nil },
		},
		"eventstream.provider": {
			get: func(c *Config) string { return c.EventStream.Provider },
			set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
		},
		"eventstream.brokers": {
			get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
			set: func(c *Config, v string) error { c.EventStream.Brokers = splitList(v); return nil },
		},
		"eventstream.topic": {
			get: func(c *Config) string { return c.EventStream.Topic },
			set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
		},
		"image.max_dimension": {
			get: func(c *Config) string { return formatInt(c.Image.MaxDimension) },
			set: func(c *Config, v string) error {
				return parseInt("image.max_dimension", v, &c.Image.MaxDimension)
			},
		},
	}

	for _, name := range ProviderNames() {
		for field, info := range providerKeys(name) {
			keys["providers."+name+"."+field] = info
		}
	}

	return keys
}

// providerKeys returns the per-field accessors for one provider table.
func providerKeys(name string) map[string]configKeyInfo {
	pc := func(c *Config) *ProviderConfig {
		p, _ := c.Providers.Get(name)
		return p
	}
	key := func(field string) string { return "providers." + name + "." + field }

	return map[string]configKeyInfo{
		"url": {
			get: func(c *Config) string { return pc(c).URL },
			set: func(c *Config, v string) error { pc(c).URL = v; return nil },
		},
		"model": {
			get: func(c *Config) string { return pc(c).Model },
			set: func(c *Config, v string) error { pc(c).Model = v; return nil },
		},
		"fallback_models": {
			get: func(c *Config) string { return strings.Join(pc(c).FallbackModels, ",") },
			set: func(c *Config, v string) error { pc(c).FallbackModels = splitList(v); return nil },
		},
		"temperature": {
			get: func(c *Config) string { return formatFloatPtr(pc(c).Temperature) },
			set: func(c *Config, v string) error { return parseFloatPtr(key("temperature"), v, &pc(c).Temperature) },
		},
		"top_p": {
			get: func(c *Config) string { return formatFloatPtr(pc(c).TopP) },
			set: func(c *Config, v string) error { return parseFloatPtr(key("top_p"), v, &pc(c).TopP) },
		},
		"max_tokens": {
			get: func(c *Config) string { return formatInt(pc(c).MaxTokens) },
			set: func(c *Config, v string) error { return parseInt(key("max_tokens"), v, &pc(c).MaxTokens) },
		},
		"stream": {
			get: func(c *Config) string { return formatBoolPtr(pc(c).Stream) },
			set: func(c *Config, v string) error { return parseBoolPtr(key("stream"), v, &pc(c).Stream) },
		},
		"thinking": {
			get: func(c *Config) string { return formatBoolPtr(pc(c).Thinking) },
			set: func(c *Config, v string) error { return parseBoolPtr(key("thinking"), v, &pc(c).Thinking) },
		},
		"timeout": {
			get: func(c *Config) string { return pc(c).Timeout },
			set: func(c *Config, v string) error {
				if v != "" {
					if _, err := time.ParseDuration(v); err != nil {
						return fmt.Errorf("invalid value for %s: %w", key("timeout"), err)
					}
				}
				pc(c).Timeout = v
				return nil
			},
		},
		"prompt": {
			get: func(c *Config) string { return pc(c).Prompt },
			set: func(c *Config, v string) error { pc(c).Prompt = v; return nil },
		},
		"max_terms": {
			get: func(c *Config) string { return formatInt(pc(c).MaxTerms) },
			set: func(c *Config, v string) error { return parseInt(key("max_terms"), v, &pc(c).MaxTerms) },
		},
		"user_agent": {
			get: func(c *Config) string { return pc(c).UserAgent },
			set: func(c *Config, v string) error { pc(c).UserAgent = v; return nil },
		},
		"fallback_key": {
			get: func(c *Config) string { return pc(c).FallbackKey },
			set: func(c *Config, v string) error { pc(c).FallbackKey = v; return nil },
		},
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func parseInt(key, v string, target *int) error {
	if v == "" {
		*target = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if n < 0 {
		return fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	*target = n
	return nil
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func parseFloatPtr(key, v string, target **float64) error {
	if v == "" {
		*target = nil
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = &f
	return nil
}

func formatBoolPtr(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func parseBoolPtr(key, v string, target **bool) error {
	if v == "" {
		*target = nil
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = &b
	return nil
}
