package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on several commands (e.g. --model on
// both "designlog chat" and "designlog gemini").
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to
	// (e.g. "providers.gemini.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag, AddBoolFlag
// and BindRegisteredFlags to avoid drift from one command to another.
const (
	FlagModel        = "model"
	FlagURL          = "url"
	FlagPrompt       = "prompt"
	FlagMaxTokens    = "max-tokens"
	FlagTimeout      = "timeout"
	FlagStream       = "stream"
	FlagThinking     = "thinking"
	FlagMaxTerms     = "max-terms"
	FlagUserAgent    = "user-agent"
	FlagMaxDimension = "max-dimension"
	FlagHistory      = "history-driver"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
)

// ProviderFlags returns the flag registry for commands that talk to the
// named provider. Every entry binds into [providers.<name>].
func ProviderFlags(name string) FlagSet {
	prefix := "providers." + name + "."
	return FlagSet{
		FlagModel: {
			Name:        "model",
			Shorthand:   "m",
			ViperKey:    prefix + "model",
			Description: "Model id to request",
		},
		FlagURL: {
			Name:        "url",
			ViperKey:    prefix + "url",
			Description: "Endpoint URL",
		},
		FlagPrompt: {
			Name:        "prompt",
			Shorthand:   "p",
			ViperKey:    prefix + "prompt",
			Description: "Text prompt sent with the request",
		},
		FlagMaxTokens: {
			Name:        "max-tokens",
			ViperKey:    prefix + "max_tokens",
			Description: "Maximum tokens to generate",
		},
		FlagTimeout: {
			Name:        "timeout",
			ViperKey:    prefix + "timeout",
			Description: "Idle timeout for the request (e.g. 60s)",
		},
		FlagStream: {
			Name:        "stream",
			ViperKey:    prefix + "stream",
			Description: "Stream the response as server-sent events",
		},
		FlagThinking: {
			Name:        "thinking",
			ViperKey:    prefix + "thinking",
			Description: "Enable the model's thinking mode (chat_template_kwargs)",
		},
		FlagMaxTerms: {
			Name:        "max-terms",
			ViperKey:    prefix + "max_terms",
			Description: "Maximum number of design terms to keep",
		},
		FlagUserAgent: {
			Name:        "user-agent",
			ViperKey:    prefix + "user_agent",
			Description: "User-Agent header sent to the provider",
		},
		FlagMaxDimension: {
			Name:        "max-dimension",
			ViperKey:    "image.max_dimension",
			Description: "Downscale images whose longest side exceeds this many pixels (0 keeps the original)",
		},
	}
}

// HistoryFlags is the flag registry for commands that open the history store.
var HistoryFlags = FlagSet{
	FlagHistory: {
		Name:        "history-driver",
		ViperKey:    "history.driver",
		Description: "History store driver (sqlite, postgres, inmemory)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "history.sqlite_path",
		Description: "Path to the SQLite history database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "history.postgres_dsn",
		Description: "PostgreSQL connection string for the history store",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
