package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/designlog/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable viper reads, e.g.
// DESIGNLOG_PROVIDERS_NVIDIA_MODEL.
const EnvPrefix = "DESIGNLOG"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the DESIGNLOG_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (DESIGNLOG_DEFAULT_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	v.SetDefault("default.provider", d.Default.Provider)

	for _, name := range ProviderNames() {
		p, _ := d.Providers.Get(name)
		prefix := "providers." + name + "."

		v.SetDefault(prefix+"url", p.URL)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"fallback_models", p.FallbackModels)
		v.SetDefault(prefix+"max_tokens", p.MaxTokens)
		v.SetDefault(prefix+"timeout", p.Timeout)
		v.SetDefault(prefix+"prompt", p.Prompt)
		v.SetDefault(prefix+"max_terms", p.MaxTerms)
		v.SetDefault(prefix+"user_agent", p.UserAgent)
		v.SetDefault(prefix+"fallback_key", p.FallbackKey)
		if p.Temperature != nil {
			v.SetDefault(prefix+"temperature", *p.Temperature)
		}
		if p.TopP != nil {
			v.SetDefault(prefix+"top_p", *p.TopP)
		}
		if p.Stream != nil {
			v.SetDefault(prefix+"stream", *p.Stream)
		}
		if p.Thinking != nil {
			v.SetDefault(prefix+"thinking", *p.Thinking)
		}
	}

	v.SetDefault("history.driver", d.History.Driver)
	v.SetDefault("history.sqlite_path", d.History.SQLitePath)
	v.SetDefault("history.postgres_dsn", d.History.PostgresDSN)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	v.SetDefault("image.max_dimension", d.Image.MaxDimension)
}

// ProviderFromViper reads the [providers.<name>] table through viper so
// flags and environment variables take part in precedence.
func ProviderFromViper(v *viper.Viper, name string) (*ProviderConfig, error) {
	if _, err := (&ProvidersConfig{}).Get(name); err != nil {
		return nil, err
	}

	prefix := "providers." + name + "."
	p := &ProviderConfig{
		URL:            v.GetString(prefix + "url"),
		Model:          v.GetString(prefix + "model"),
		FallbackModels: v.GetStringSlice(prefix + "fallback_models"),
		MaxTokens:      v.GetInt(prefix + "max_tokens"),
		Timeout:        v.GetString(prefix + "timeout"),
		Prompt:         v.GetString(prefix + "prompt"),
		MaxTerms:       v.GetInt(prefix + "max_terms"),
		UserAgent:      v.GetString(prefix + "user_agent"),
		FallbackKey:    v.GetString(prefix + "fallback_key"),
	}

	if v.IsSet(prefix + "temperature") {
		p.Temperature = float64Ptr(v.GetFloat64(prefix + "temperature"))
	}
	if v.IsSet(prefix + "top_p") {
		p.TopP = float64Ptr(v.GetFloat64(prefix + "top_p"))
	}
	if v.IsSet(prefix + "stream") {
		p.Stream = boolPtr(v.GetBool(prefix + "stream"))
	}
	if v.IsSet(prefix + "thinking") {
		p.Thinking = boolPtr(v.GetBool(prefix + "thinking"))
	}

	if _, err := p.TimeoutDuration(); err != nil {
		return nil, err
	}

	return p, nil
}

// HistoryFromViper reads the [history] table through viper.
func HistoryFromViper(v *viper.Viper) HistoryConfig {
	return HistoryConfig{
		Driver:      v.GetString("history.driver"),
		SQLitePath:  v.GetString("history.sqlite_path"),
		PostgresDSN: v.GetString("history.postgres_dsn"),
	}
}

// EventStreamFromViper reads the [eventstream] table through viper.
func EventStreamFromViper(v *viper.Viper) EventStreamConfig {
	return EventStreamConfig{
		Provider: v.GetString("eventstream.provider"),
		Brokers:  v.GetStringSlice("eventstream.brokers"),
		Topic:    v.GetString("eventstream.topic"),
	}
}

// ImageFromViper reads the [image] table through viper.
func ImageFromViper(v *viper.Viper) ImageConfig {
	return ImageConfig{
		MaxDimension: v.GetInt("image.max_dimension"),
	}
}
