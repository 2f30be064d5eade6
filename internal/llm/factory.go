package llm

import (
	"context"
	"fmt"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
)

// NewProvider builds the configured provider wrapped as
// timeout -> retry -> logging -> vendor SDK. It returns (nil, nil) when
// AI grading is disabled.
func NewProvider(ctx context.Context, cfg Config, calls CallLog, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "mock":
		base = NewMockProvider()
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}

	p := WithLogging(base, calls, log)
	p = WithRetry(p, cfg.Retry)
	return WithTimeout(p, cfg.Timeout), nil
}
