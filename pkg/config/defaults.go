package config

const (
	defaultProvider = ProviderCerebras

	defaultCerebrasURL = "https://api.cerebras.ai/v1/chat/completions"
	defaultNVIDIAURL   = "https://integrate.api.nvidia.com/v1/chat/completions"
	defaultGeminiURL   = "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent?key={key}"

	defaultCerebrasModel = "zai-glm-4.7"
	defaultNVIDIAModel   = "qwen/qwen3.5-397b-a17b"
	defaultGeminiModel   = "gemini-2.0-flash"

	defaultCerebrasPrompt = "What is in this picture?"
	defaultGeminiPrompt   = "Count from 1 to 3. Output only the digits, nothing else."

	// defaultTermsPrompt asks a vision model for design keywords as a JSON list.
	defaultTermsPrompt = "Based on the concrete usage scenario and interface context of this screenshot, " +
		"extract the 5-10 most important design keywords from a professional UI and visual design perspective. " +
		"Cover layout structure, component shapes, typography, colour, materials, hierarchy and interaction patterns. " +
		"Avoid abstract judgements; the keywords must be directly usable to recreate or search for similar designs. " +
		`Output a list (["keyword1", ...]) and nothing else.`

	defaultMaxTerms = 10

	defaultHistoryDriver = "sqlite"

	defaultEventTopic = "designlog.entries"
)

// DefaultHistoryFile is the SQLite file created in the designlog dir when
// no sqlite_path is configured.
const DefaultHistoryFile = "history.db"

func float64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool          { return &b }

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Default: DefaultConfig{
			Provider: defaultProvider,
		},
		Providers: ProvidersConfig{
			Cerebras: ProviderConfig{
				URL:         defaultCerebrasURL,
				Model:       defaultCerebrasModel,
				Temperature: float64Ptr(1),
				TopP:        float64Ptr(0.95),
				MaxTokens:   65000,
				Stream:      boolPtr(true),
				Timeout:     "60s",
				Prompt:      defaultCerebrasPrompt,
				MaxTerms:    defaultMaxTerms,
			},
			NVIDIA: ProviderConfig{
				URL:         defaultNVIDIAURL,
				Model:       defaultNVIDIAModel,
				Temperature: float64Ptr(1),
				TopP:        float64Ptr(1),
				MaxTokens:   16384,
				Stream:      boolPtr(false),
				Thinking:    boolPtr(false),
				Timeout:     "60s",
				Prompt:      defaultTermsPrompt,
				MaxTerms:    defaultMaxTerms,
			},
			Gemini: ProviderConfig{
				URL:            defaultGeminiURL,
				Model:          defaultGeminiModel,
				FallbackModels: []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-3-flash-preview"},
				Temperature:    float64Ptr(0.4),
				MaxTokens:      64,
				Stream:         boolPtr(false),
				Timeout:        "30s",
				Prompt:         defaultGeminiPrompt,
				MaxTerms:       defaultMaxTerms,
			},
		},
		History: HistoryConfig{
			Driver: defaultHistoryDriver,
		},
		EventStream: EventStreamConfig{
			Topic: defaultEventTopic,
		},
	}
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Default.Provider == "" {
		cfg.Default.Provider = defaults.Default.Provider
	}

	for _, name := range ProviderNames() {
		p, _ := cfg.Providers.Get(name)
		d, _ := defaults.Providers.Get(name)
		applyProviderDefaults(p, d)
	}

	if cfg.History.Driver == "" {
		cfg.History.Driver = defaults.History.Driver
	}
	if cfg.EventStream.Topic == "" {
		cfg.EventStream.Topic = defaults.EventStream.Topic
	}
}

func applyProviderDefaults(p, d *ProviderConfig) {
	if p.URL == "" {
		p.URL = d.URL
	}
	if p.Model == "" {
		p.Model = d.Model
	}
	if p.FallbackModels == nil {
		p.FallbackModels = d.FallbackModels
	}
	if p.Temperature == nil {
		p.Temperature = d.Temperature
	}
	if p.TopP == nil {
		p.TopP = d.TopP
	}
	if p.MaxTokens == 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.Stream == nil {
		p.Stream = d.Stream
	}
	if p.Thinking == nil {
		p.Thinking = d.Thinking
	}
	if p.Timeout == "" {
		p.Timeout = d.Timeout
	}
	if p.Prompt == "" {
		p.Prompt = d.Prompt
	}
	if p.MaxTerms == 0 {
		p.MaxTerms = d.MaxTerms
	}
}
