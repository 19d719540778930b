package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

func TestNewClient_Success_RouterInitialization(t *testing.T) {
	fastConfig := getValidLLMConfig()
	fastConfig.Model = "gemini-flash"

	powerfulConfig := config.LLMModelConfig{
		Provider: config.ProviderOpenAI,
		Model:    "gpt-4o",
		APIKey:   "sk-powerful",
	}

	cfg := config.LLMRouterConfig{
		DefaultFastModel:     "FastAlias",
		DefaultPowerfulModel: "PowerfulAlias",
		Models: map[string]config.LLMModelConfig{
			"FastAlias":     fastConfig,
			"PowerfulAlias": powerfulConfig,
		},
	}

	client, err := NewClient(context.Background(), cfg, setupTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	router, ok := client.(*LLMRouter)
	require.True(t, ok, "the factory must return an *LLMRouter")

	fast, ok := router.clients[schemas.TierFast].(*GeminiClient)
	require.True(t, ok)
	assert.Equal(t, "gemini-flash", fast.config.Model)
	assert.NotNil(t, fast.client)

	powerful, ok := router.clients[schemas.TierPowerful].(*OpenAIClient)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", powerful.config.Model)
}

func TestNewClient_Failure_MissingConfiguration(t *testing.T) {
	validConfig := getValidLLMConfig()
	const validName = "ValidModel"

	tests := []struct {
		name          string
		routerConfig  config.LLMRouterConfig
		expectedError string
	}{
		{
			name: "Missing DefaultFastModel Name",
			routerConfig: config.LLMRouterConfig{
				DefaultPowerfulModel: validName,
				Models:               map[string]config.LLMModelConfig{validName: validConfig},
			},
			expectedError: "default_fast_model is not specified",
		},
		{
			name: "Missing DefaultPowerfulModel Name",
			routerConfig: config.LLMRouterConfig{
				DefaultFastModel: validName,
				Models:           map[string]config.LLMModelConfig{validName: validConfig},
			},
			expectedError: "default_powerful_model is not specified",
		},
		{
			name: "DefaultFastModel Not Found in Map",
			routerConfig: config.LLMRouterConfig{
				DefaultFastModel:     "MissingModel",
				DefaultPowerfulModel: validName,
				Models:               map[string]config.LLMModelConfig{validName: validConfig},
			},
			expectedError: "fast tier model 'MissingModel' not found in the models map",
		},
		{
			name:          "Empty Router Config",
			routerConfig:  config.LLMRouterConfig{},
			expectedError: "default_fast_model is not specified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.routerConfig, setupTestLogger(t))
			assert.Nil(t, client)
			require.Error(t, err)
			assert.ErrorIs(t, err, schemas.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestNewClient_Failure_ProviderInitializationError(t *testing.T) {
	invalidConfig := getValidLLMConfig()
	invalidConfig.APIKey = ""

	cfg := config.LLMRouterConfig{
		DefaultFastModel:     "InvalidConfig",
		DefaultPowerfulModel: "ValidConfig",
		Models: map[string]config.LLMModelConfig{
			"InvalidConfig": invalidConfig,
			"ValidConfig":   getValidLLMConfig(),
		},
	}

	client, err := NewClient(context.Background(), cfg, setupTestLogger(t))
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize fast tier LLM client (Model: InvalidConfig):")
	assert.Contains(t, err.Error(), "Gemini API key is required")
}

func TestNewProviderClient_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		provider config.LLMProvider
		want     string
	}{
		{"unknown provider", "unsupported-provider-xyz", "unknown or unsupported LLM provider configured: 'unsupported-provider-xyz'"},
		{"missing provider", "", "LLM provider is not specified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := getValidLLMConfig()
			cfg.Provider = tt.provider

			client, err := NewProviderClient(context.Background(), cfg, setupTestLogger(t))
			assert.Nil(t, client)
			require.Error(t, err)
			assert.ErrorIs(t, err, schemas.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
