package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/designlog/pkg/chat"
	"github.com/papercomputeco/designlog/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

var (
	// ErrUnsupportedProvider is returned when storing a key for a provider
	// designlog cannot talk to.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrEmptyKey is returned when storing a blank key.
	ErrEmptyKey = errors.New("API key cannot be empty")
)

var providerEnvVars = map[string]string{
	"cerebras": "CEREBRAS_API_KEY",
	"nvidia":   "NVIDIA_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

// Manager reads and writes credentials.toml in the .designlog/ directory.
type Manager struct {
	targetPath string
}

// NewManager creates a credentials Manager. A non-empty override is used as
// the .designlog/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: filepath.Join(target, credentialsFile)}, nil
}

// Load reads credentials.toml. A missing file yields empty credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing credentials %s: %w", m.targetPath, err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

func (m *Manager) update(fn func(*Credentials)) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	fn(creds)
	return m.Save(creds)
}

// SetKey stores key for provider. Provider names are case-insensitive and
// surrounding whitespace is stripped from both arguments.
func (m *Manager) SetKey(provider, key string) error {
	provider = NormalizeProvider(provider)
	if !IsSupportedProvider(provider) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedProvider, provider,
			strings.Join(SupportedProviders(), ", "))
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	return m.update(func(c *Credentials) {
		c.Providers[provider] = ProviderCredential{APIKey: key}
	})
}

// GetKey returns the stored key for provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[NormalizeProvider(provider)].APIKey, nil
}

// RemoveKey deletes the stored key for provider. Removing a missing key is
// not an error.
func (m *Manager) RemoveKey(provider string) error {
	return m.update(func(c *Credentials) {
		delete(c.Providers, NormalizeProvider(provider))
	})
}

// ListProviders returns the sorted names of providers with a stored key.
func (m *Manager) ListProviders() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(creds.Providers)), nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// ProviderStatus is the outcome of resolving one provider's key.
type ProviderStatus struct {
	Provider   string
	Resolution *Resolution

	// Missing is set when no source had a key; Resolution is nil.
	Missing *chat.ConfigurationError
}

// Status resolves the key of every supported provider through r, in
// SupportedProviders order. fallbacks maps provider names to their config
// fallback_key. A provider without any key is reported through Missing;
// other resolution failures abort.
func Status(r *Resolver, fallbacks map[string]string) ([]ProviderStatus, error) {
	providers := SupportedProviders()
	out := make([]ProviderStatus, 0, len(providers))

	for _, name := range providers {
		st := ProviderStatus{Provider: name}

		res, err := r.Resolve(name, "", fallbacks[name])
		if err != nil && !errors.As(err, &st.Missing) {
			return nil, err
		}
		st.Resolution = res

		out = append(out, st)
	}
	return out, nil
}

// Origin describes where a resolved key came from, including the file for
// file-based sources.
func (r *Resolution) Origin() string {
	if r.Path == "" {
		return string(r.Source)
	}
	return string(r.Source) + " " + r.Path
}

// Masked returns the key with MaskKey applied.
func (r *Resolution) Masked() string {
	return MaskKey(r.Key)
}

// MaskKey shows the first and last four characters of a key. Keys of twelve
// characters or fewer are masked entirely.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 8) + key[len(key)-4:]
}

// NormalizeProvider lowercases and trims a provider name.
func NormalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

// EnvVarForProvider returns the environment variable holding provider's key,
// or "" for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[NormalizeProvider(provider)]
}

// SupportedProviders returns the providers that take an API key.
func SupportedProviders() []string {
	return []string{"cerebras", "nvidia", "gemini"}
}

// IsSupportedProvider reports whether provider is one of SupportedProviders.
func IsSupportedProvider(provider string) bool {
	return slices.Contains(SupportedProviders(), NormalizeProvider(provider))
}
