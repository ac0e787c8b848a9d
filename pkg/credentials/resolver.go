package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/papercomputeco/designlog/pkg/chat"
	"github.com/papercomputeco/designlog/pkg/logger"
)

// PlaceholderMarker appears in example keys copied from documentation.
const PlaceholderMarker = "Xxx"

// Source names where a resolved key came from.
type Source string

const (
	SourceExplicit    Source = "flag"
	SourceEnv         Source = "environment"
	SourceCredentials Source = "credentials.toml"
	SourceEnvFile     Source = "env file"
	SourceFallback    Source = "config fallback_key"
)

// DefaultEnvFiles are read, in order, from the working directory.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Resolution is a key and where it was found.
type Resolution struct {
	Key    string
	Source Source

	// Path is set for file-based sources.
	Path string
}

// Placeholder reports whether the key still contains PlaceholderMarker.
// Such keys are used anyway; callers should warn.
func (r *Resolution) Placeholder() bool {
	return strings.Contains(r.Key, PlaceholderMarker)
}

// Resolver finds the API key for a provider. Precedence, highest first:
//  1. explicit value (flag or argument)
//  2. environment variable (CEREBRAS_API_KEY, NVIDIA_API_KEY, GEMINI_API_KEY)
//  3. credentials.toml in the .designlog/ directory
//  4. .env.local then .env in the working directory
//  5. the configured fallback key
//
// Blank values are skipped at every level.
type Resolver struct {
	manager  *Manager
	envFiles []string
	getenv   func(string) string
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvFiles replaces DefaultEnvFiles.
func WithEnvFiles(paths ...string) ResolverOption {
	return func(r *Resolver) {
		r.envFiles = paths
	}
}

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) ResolverOption {
	return func(r *Resolver) {
		r.getenv = fn
	}
}

// WithResolverLogger sets the logger used for debug records about placeholder
// keys and skipped env files.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a Resolver reading stored keys through m. m may be nil
// to skip credentials.toml.
func NewResolver(m *Manager, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		manager:  m,
		envFiles: DefaultEnvFiles,
		getenv:   os.Getenv,
		logger:   logger.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the first non-blank key for provider. When none is found
// it returns a *chat.ConfigurationError naming the ways to supply one.
func (r *Resolver) Resolve(provider, explicit, fallback string) (*Resolution, error) {
	res, err := r.lookup(provider, explicit, fallback)
	if err != nil {
		return nil, err
	}

	if res == nil {
		return nil, &chat.ConfigurationError{
			Provider: provider,
			Hint:     remediation(provider),
		}
	}

	if res.Placeholder() {
		r.logger.Debug("resolved key contains the placeholder marker",
			"provider", provider,
			"source", string(res.Source),
		)
	}

	return res, nil
}

func (r *Resolver) lookup(provider, explicit, fallback string) (*Resolution, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return &Resolution{Key: key, Source: SourceExplicit}, nil
	}

	envVar := EnvVarForProvider(provider)
	if envVar != "" {
		if key := strings.TrimSpace(r.getenv(envVar)); key != "" {
			return &Resolution{Key: key, Source: SourceEnv}, nil
		}
	}

	if r.manager != nil {
		stored, err := r.manager.GetKey(provider)
		if err != nil {
			return nil, err
		}
		if key := strings.TrimSpace(stored); key != "" {
			return &Resolution{Key: key, Source: SourceCredentials, Path: r.manager.GetTarget()}, nil
		}
	}

	if envVar != "" {
		for _, path := range r.envFiles {
			key, err := readEnvFile(path, envVar)
			if err != nil {
				r.logger.Debug("skipping env file", "path", path, "error", err)
				continue
			}
			if key != "" {
				return &Resolution{Key: key, Source: SourceEnvFile, Path: path}, nil
			}
		}
	}

	if key := strings.TrimSpace(fallback); key != "" {
		return &Resolution{Key: key, Source: SourceFallback}, nil
	}

	return nil, nil
}

// readEnvFile returns the trimmed value of name in a dotenv file. A missing
// file yields "", nil.
func readEnvFile(path, name string) (string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	return strings.TrimSpace(vars[name]), nil
}

func remediation(provider string) string {
	envVar := EnvVarForProvider(provider)
	if envVar == "" {
		return "pass --api-key"
	}

	return fmt.Sprintf("set %s, run \"designlog auth %s\", add %s=<key> to .env.local or .env, or pass --api-key",
		envVar, provider, envVar)
}
