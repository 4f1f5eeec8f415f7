package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_Backends(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(*Config)
		modelID string
	}{
		{"anthropic", func(c *Config) { c.Provider = "anthropic"; c.Anthropic.APIKey = "k" }, "claude-haiku-4-5-20251001"},
		{"openai", func(c *Config) { c.Provider = "openai"; c.OpenAI.APIKey = "k" }, "gpt-4o-mini"},
		{"openrouter", func(c *Config) { c.Provider = "openrouter"; c.OpenRouter.APIKey = "k" }, "google/gemini-2.5-flash"},
		{"mock", func(c *Config) { c.Provider = "mock" }, "mock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)

			p, err := NewProvider(context.Background(), cfg, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.modelID, p.ModelID())
			assert.IsType(t, &RetryProvider{}, p)
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "carrier-pigeon"

	_, err := NewProvider(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestNewProvider_BadCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "mock"
	cfg.Cache.URL = "ftp://nowhere"

	_, err := NewProvider(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}

func TestNewProvider_MockIsOffline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "mock"
	cfg.Retry.MaxAttempts = 1
	cfg.Cache.URL = "memory"

	p, err := NewProvider(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Prompt: "hello"})
	var unavailable *ErrProviderUnavailable
	assert.True(t, errors.As(err, &unavailable))
}

func TestNewProviderFromEnv(t *testing.T) {
	for _, k := range []string{"EXAMFORGE_LLM_PROVIDER", "EXAMFORGE_ANTHROPIC_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}

	_, err := NewProviderFromEnv(context.Background(), nil, nil)
	require.Error(t, err, "no keys anywhere")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	p, err := NewProviderFromEnv(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	require.NotNil(t, c)
	assert.InDelta(t, 0.15+0.6, c.Cost(1_000_000, 1_000_000), 1e-9)
	assert.Nil(t, LookupCost("mock"))
}
