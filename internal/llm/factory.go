package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/examforge/internal/store"
)

// NewProvider creates a Provider from configuration.
// It returns the provider wrapped with retry, logging and cache middleware.
// events and logger may be nil.
func NewProvider(ctx context.Context, cfg Config, events store.EventRepo, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		// Offline: every call fails, so generation falls back to synthesis.
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	cache, err := NewCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	if cache != nil {
		base = WithCache(base, cache, logger)
	}

	// Wrap with middleware: caller → retry → logging → cache → base
	logged := WithLogging(base, cfg.Provider, events, logger)
	retried := WithRetry(logged, cfg.Retry, logger)

	return retried, nil
}

// NewProviderFromEnv builds a Provider from EXAMFORGE_* variables, falling
// back to the first standard API key found.
func NewProviderFromEnv(ctx context.Context, events store.EventRepo, logger *zap.Logger) (Provider, error) {
	cfg := ConfigFromEnv()
	if !cfg.HasKey() {
		if discovered, ok := DiscoverConfig(); ok {
			cfg = discovered
			ApplyEnv(&cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewProvider(ctx, cfg, events, logger)
}
