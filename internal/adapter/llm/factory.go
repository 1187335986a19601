package llm

import (
	"log/slog"

	"github.com/xiaot623/thinkarr/internal/config"
	"github.com/xiaot623/thinkarr/internal/domain"
)

// NewClientFactory returns the factory for cfg.LLMMode. In mock mode every
// endpoint shares one MockClient; otherwise each endpoint gets an OpenAI
// client behind a circuit breaker.
func NewClientFactory(cfg *config.Config, logger *slog.Logger) ClientFactory {
	if cfg.LLMMode == config.LLMModeMock {
		logger.Info("LLM_MODE=mock detected, using mock LLM client")
		mock := NewMockClient()
		return func(domain.LLMEndpoint) Client { return mock }
	}

	return func(ep domain.LLMEndpoint) Client {
		inner := NewOpenAIClient(OpenAIOptions{
			BaseURL: ep.BaseURL,
			APIKey:  ep.APIKey,
			Timeout: cfg.LLMTimeout,
		})
		return NewBreakerClient(ep.ID, inner, BreakerOptions{
			MaxFailures: uint32(cfg.BreakerFailures),
			Timeout:     cfg.BreakerTimeout,
		}, logger)
	}
}
