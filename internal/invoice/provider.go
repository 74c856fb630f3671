package invoice

import (
	"context"
	"fmt"

	"subrecetas/internal/ai"
	"subrecetas/internal/config"
)

// New builds the parser selected by the configuration.
func New(ctx context.Context, cfg config.ParserConfig) (Parser, error) {
	switch cfg.Provider {
	case "", config.ProviderMock:
		return NewMockParser(), nil
	case config.ProviderOpenAI:
		client, err := ai.NewClient(ai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.Model,
			BaseURL: cfg.OpenAIURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai parser: %w", err)
		}
		return NewAIParser(client, "openai"), nil
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, ai.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini parser: %w", err)
		}
		return NewAIParser(client, "gemini"), nil
	default:
		return nil, fmt.Errorf("unsupported invoice parser provider: %s", cfg.Provider)
	}
}
