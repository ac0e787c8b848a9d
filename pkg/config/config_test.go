package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/designlog/pkg/config"
)

func writeConfig(dir, data string) {
	Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600)).To(Succeed())
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills unset fields", func() {
			writeConfig(tmpDir, `version = 0

[default]
provider = "nvidia"

[providers.nvidia]
model = "moonshotai/kimi-k2.5"
stream = true
temperature = 0.0

[history]
driver = "inmemory"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Default.Provider).To(Equal("nvidia"))
			Expect(cfg.Providers.NVIDIA.Model).To(Equal("moonshotai/kimi-k2.5"))
			Expect(*cfg.Providers.NVIDIA.Stream).To(BeTrue())
			Expect(*cfg.Providers.NVIDIA.Temperature).To(BeZero())
			Expect(cfg.History.Driver).To(Equal("inmemory"))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Providers.NVIDIA.URL).To(Equal(defaults.Providers.NVIDIA.URL))
			Expect(cfg.Providers.NVIDIA.MaxTokens).To(Equal(16384))
			Expect(*cfg.Providers.NVIDIA.Thinking).To(BeFalse())
			Expect(cfg.Providers.Cerebras).To(Equal(defaults.Providers.Cerebras))
			Expect(cfg.EventStream.Topic).To(Equal(defaults.EventStream.Topic))
		})

		It("returns error for malformed TOML", func() {
			writeConfig(tmpDir, "this is not valid toml [[[")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig(tmpDir, "version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 99")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk and round-trips", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Default.Provider = config.ProviderGemini
			cfg.EventStream.Provider = "kafka"
			cfg.EventStream.Brokers = []string{"localhost:9092"}
			cfg.Image.MaxDimension = 1568
			Expect(c.SaveConfig(cfg)).To(Succeed())

			Expect(filepath.Join(tmpDir, "config.toml")).To(BeAnExistingFile())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets a string key", func() {
			Expect(c.SetConfigValue("providers.cerebras.model", "llama-4-scout")).To(Succeed())

			val, err := c.GetConfigValue("providers.cerebras.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("llama-4-scout"))
		})

		It("sets numeric and boolean keys", func() {
			Expect(c.SetConfigValue("providers.nvidia.temperature", "0.2")).To(Succeed())
			Expect(c.SetConfigValue("providers.nvidia.thinking", "true")).To(Succeed())
			Expect(c.SetConfigValue("image.max_dimension", "1024")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(*cfg.Providers.NVIDIA.Temperature).To(Equal(0.2))
			Expect(*cfg.Providers.NVIDIA.Thinking).To(BeTrue())
			Expect(cfg.Image.MaxDimension).To(Equal(1024))
		})

		It("splits list keys on commas", func() {
			Expect(c.SetConfigValue("providers.gemini.fallback_models", "gemini-1.5-pro, gemini-1.5-flash")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Providers.Gemini.FallbackModels).To(Equal([]string{"gemini-1.5-pro", "gemini-1.5-flash"}))
			Expect(cfg.Providers.Gemini.Models()).To(Equal([]string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"}))
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.listen", ":8080")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid values", func() {
			Expect(c.SetConfigValue("providers.cerebras.max_tokens", "lots")).To(MatchError(ContainSubstring("providers.cerebras.max_tokens")))
			Expect(c.SetConfigValue("providers.cerebras.timeout", "soon")).To(HaveOccurred())
			Expect(c.SetConfigValue("providers.gemini.stream", "maybe")).To(HaveOccurred())
			Expect(c.SetConfigValue("default.provider", "openai")).To(MatchError(ContainSubstring("unknown provider")))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("history.driver", "postgres")).To(Succeed())
			Expect(c.SetConfigValue("history.postgres_dsn", "postgres://localhost/designlog")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.History.Driver).To(Equal("postgres"))
			Expect(cfg.History.PostgresDSN).To(Equal("postgres://localhost/designlog"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns defaults when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("providers.cerebras.top_p")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("0.95"))

			val, err = c.GetConfigValue("providers.gemini.timeout")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("30s"))
		})

		It("returns empty string for keys without a default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("providers.nvidia.fallback_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key once in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys[0]).To(Equal("default.provider"))
			Expect(keys).To(ContainElements(
				"providers.cerebras.url",
				"providers.nvidia.thinking",
				"providers.gemini.fallback_models",
				"history.sqlite_path",
				"eventstream.brokers",
				"image.max_dimension",
			))

			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen).NotTo(HaveKey(k))
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})

		It("is stable across calls", func() {
			Expect(config.ValidConfigKeys()).To(Equal(config.ValidConfigKeys()))
		})
	})
})

var _ = Describe("ProviderConfig", func() {
	It("parses the timeout", func() {
		p := &config.ProviderConfig{Timeout: "60s"}
		d, err := p.TimeoutDuration()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Seconds()).To(Equal(60.0))
	})

	It("treats an empty timeout as none", func() {
		d, err := (&config.ProviderConfig{}).TimeoutDuration()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())
	})

	It("skips blank models", func() {
		p := &config.ProviderConfig{Model: "a", FallbackModels: []string{" ", "b"}}
		Expect(p.Models()).To(Equal([]string{"a", "b"}))
	})
})

var _ = Describe("PresetConfig", func() {
	It("selects the default provider", func() {
		cfg, err := config.PresetConfig("Gemini")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Default.Provider).To(Equal(config.ProviderGemini))
	})

	It("switches nvidia to the streaming kimi model", func() {
		cfg, err := config.PresetConfig("nvidia-kimi")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Default.Provider).To(Equal(config.ProviderNVIDIA))
		Expect(cfg.Providers.NVIDIA.Model).To(Equal("moonshotai/kimi-k2.5"))
		Expect(cfg.Providers.NVIDIA.MaxTokens).To(Equal(8192))
		Expect(*cfg.Providers.NVIDIA.Stream).To(BeTrue())
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("openai")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})
})

var _ = Describe("NewDefaultConfig", func() {
	It("carries the provider defaults", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Default.Provider).To(Equal(config.ProviderCerebras))

		Expect(cfg.Providers.Cerebras.URL).To(Equal("https://api.cerebras.ai/v1/chat/completions"))
		Expect(cfg.Providers.Cerebras.Model).To(Equal("zai-glm-4.7"))
		Expect(cfg.Providers.Cerebras.MaxTokens).To(Equal(65000))
		Expect(*cfg.Providers.Cerebras.Stream).To(BeTrue())

		Expect(cfg.Providers.NVIDIA.URL).To(Equal("https://integrate.api.nvidia.com/v1/chat/completions"))
		Expect(*cfg.Providers.NVIDIA.Stream).To(BeFalse())
		Expect(cfg.Providers.NVIDIA.MaxTerms).To(Equal(10))

		Expect(cfg.Providers.Gemini.Models()).To(Equal([]string{
			"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro", "gemini-3-flash-preview",
		}))
		Expect(*cfg.Providers.Gemini.Temperature).To(Equal(0.4))
		Expect(cfg.Providers.Gemini.MaxTokens).To(Equal(64))

		Expect(cfg.History.Driver).To(Equal("sqlite"))
	})
})
