// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

// NewClient builds the tiered router described by the llm configuration.
func NewClient(ctx context.Context, cfg config.LLMRouterConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	if cfg.DefaultFastModel == "" {
		return nil, fmt.Errorf("%w: default_fast_model is not specified", schemas.ErrConfiguration)
	}
	if cfg.DefaultPowerfulModel == "" {
		return nil, fmt.Errorf("%w: default_powerful_model is not specified", schemas.ErrConfiguration)
	}

	fast, err := newTierClient(ctx, cfg, schemas.TierFast, cfg.DefaultFastModel, logger)
	if err != nil {
		return nil, err
	}
	powerful, err := newTierClient(ctx, cfg, schemas.TierPowerful, cfg.DefaultPowerfulModel, logger)
	if err != nil {
		_ = fast.Close()
		return nil, err
	}
	return NewLLMRouter(logger, fast, powerful)
}

func newTierClient(ctx context.Context, cfg config.LLMRouterConfig, tier schemas.ModelTier, name string, logger *zap.Logger) (schemas.LLMClient, error) {
	modelCfg, ok := cfg.Models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s tier model '%s' not found in the models map", schemas.ErrConfiguration, tier, name)
	}
	client, err := NewProviderClient(ctx, modelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s tier LLM client (Model: %s): %w", tier, name, err)
	}
	return client, nil
}

// NewProviderClient creates a single client for the configured provider.
func NewProviderClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := NewGeminiClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderOpenAI:
		c, err := NewOpenAIClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "":
		return nil, fmt.Errorf("%w: LLM provider is not specified in the model configuration", schemas.ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			schemas.ErrConfiguration, cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}
