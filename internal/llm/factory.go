package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/readkode/readkode/internal/logger"
)

// New builds the configured provider wrapped with timeout, retry and
// logging middleware.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	model := cfg.ModelOrDefault()
	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		p, err = NewAnthropic(cfg.APIKey, model)
	case ProviderOpenAI:
		p, err = NewOpenAI(cfg.APIKey, model, cfg.BaseURL)
	case ProviderOpenRouter:
		p, err = NewOpenRouter(cfg.APIKey, model, cfg.BaseURL)
	case ProviderGemini:
		p, err = NewGemini(ctx, cfg.APIKey, model)
	case ProviderMock:
		p = NewMock()
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	p = WithRetry(p, cfg.Retry)
	if cfg.Timeout > 0 {
		p = withTimeout(p, cfg.Timeout)
	}
	return WithLogging(p, log.With("component", "llm")), nil
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// withTimeout bounds a whole Generate call, retries included.
func withTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}
