// Package config loads the examforge YAML configuration and overlays the
// environment on top of it.
package config

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/examforge/internal/evaluate"
	"github.com/abhisek/examforge/internal/generate"
	"github.com/abhisek/examforge/internal/llm"
)

const (
	dirName  = "examforge"
	fileName = "config.yaml"
)

// Config is the complete application configuration.
type Config struct {
	LLM      llm.Config      `yaml:"llm"`
	Generate generate.Config `yaml:"generate"`
	Evaluate evaluate.Config `yaml:"evaluate"`
	Log      LogConfig       `yaml:"log"`
	Store    StoreConfig     `yaml:"store"`
}

// LogConfig selects the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig locates the trace database.
type StoreConfig struct {
	// DSN is a SQLite path or a postgres:// URL. Empty means the default
	// data directory.
	DSN string `yaml:"dsn"`
}

// Default returns the built-in configuration.
func Default() Config {
	gen := generate.DefaultConfig()
	// Inherited from llm.mode unless set explicitly.
	gen.Mode = ""
	return Config{
		LLM:      llm.DefaultConfig(),
		Generate: gen,
		Evaluate: evaluate.DefaultConfig(),
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// DefaultPath resolves the config file location in priority order:
// 1. EXAMFORGE_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/examforge/config.yaml
// 3. ~/.config/examforge/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("EXAMFORGE_CONFIG"); p != "" {
		return p, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, dirName, fileName), nil
}

// Load reads the config at path, overlays EXAMFORGE_* variables and
// validates the result. An empty path means DefaultPath, which may be
// absent; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	ApplyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes one YAML document over Default. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return Config{}, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays the environment onto cfg. When the selected provider
// has no key, the first provider with a standard API key variable set
// (GEMINI_API_KEY, OPENAI_API_KEY, ...) is used instead.
func ApplyEnv(cfg *Config) {
	llm.ApplyEnv(&cfg.LLM)
	if v := os.Getenv("EXAMFORGE_DB"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("EXAMFORGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if !cfg.LLM.HasKey() {
		if found, ok := llm.DiscoverConfig(); ok {
			cfg.LLM.Provider = found.Provider
			cfg.LLM.Anthropic.APIKey = cmp.Or(cfg.LLM.Anthropic.APIKey, found.Anthropic.APIKey)
			cfg.LLM.OpenAI.APIKey = cmp.Or(cfg.LLM.OpenAI.APIKey, found.OpenAI.APIKey)
			cfg.LLM.Gemini.APIKey = cmp.Or(cfg.LLM.Gemini.APIKey, found.Gemini.APIKey)
			cfg.LLM.OpenRouter.APIKey = cmp.Or(cfg.LLM.OpenRouter.APIKey, found.OpenRouter.APIKey)
		}
	}

	if cfg.Generate.Mode == "" {
		cfg.Generate.Mode = cfg.LLM.Mode
	}
}

// Validate checks the settings that cannot be checked lazily. Missing
// API keys are reported when a provider is built.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "gemini", "openrouter", "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.LLM.Provider)
	}
	for _, m := range []llm.Mode{c.LLM.Mode, c.Generate.Mode} {
		switch m {
		case "", llm.ModeChat, llm.ModeCompletion:
		default:
			return fmt.Errorf("unknown LLM mode: %q", m)
		}
	}
	for k, p := range c.Generate.Points {
		if !k.IsCanonical() {
			return fmt.Errorf("generate.points: unknown kind %q", k)
		}
		if p <= 0 {
			return fmt.Errorf("generate.points: %s must be positive, got %d", k, p)
		}
	}
	ev := c.Evaluate
	if ev.MinWords < 1 {
		return fmt.Errorf("evaluate: min_words must be at least 1, got %d", ev.MinWords)
	}
	if ev.ShortWords < ev.MinWords || ev.FullCreditWords <= ev.ShortWords {
		return fmt.Errorf("evaluate: word thresholds must satisfy min_words <= short_words < full_credit_words, got %d, %d, %d",
			ev.MinWords, ev.ShortWords, ev.FullCreditWords)
	}
	if c.Generate.CallTimeout < 0 || c.Evaluate.CallTimeout < 0 {
		return fmt.Errorf("call timeouts must not be negative")
	}
	return nil
}
