package llmclient

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/observability"
)

// OpenAIClient implements schemas.LLMClient for OpenAI and compatible
// chat-completion endpoints (Azure, local servers).
type OpenAIClient struct {
	client openai.Client
	logger *zap.Logger
	config config.LLMModelConfig
}

// NewOpenAIClient builds a client. Retries are disabled so one Generate is
// exactly one HTTP exchange.
func NewOpenAIClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", schemas.ErrConfiguration)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.APITimeout))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		config: cfg,
		logger: logger.Named("llm_client.openai"),
	}, nil
}

// Generate sends a system and a user message and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	startTime := time.Now()
	text, err := c.generate(ctx, req)
	observability.RecordLLMRequest(string(config.ProviderOpenAI), err)
	if err != nil {
		c.logger.Error("OpenAI generation failed", zap.String("model", c.config.Model), zap.Error(err))
		return "", err
	}
	c.logger.Debug("OpenAI generation complete", zap.Duration("duration", time.Since(startTime)))
	return text, nil
}

func (c *OpenAIClient) generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("openai API request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai API returned no choices")
	}

	choice := resp.Choices[0]
	if choice.Message.Content == "" {
		return "", fmt.Errorf("openai API returned empty content (Reason: %s)", choice.FinishReason)
	}

	c.logger.Info("LLM generation complete (OpenAI)",
		zap.String("model", c.config.Model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)
	return choice.Message.Content, nil
}

func (c *OpenAIClient) buildParams(req schemas.GenerationRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.config.Model),
		Messages: messages,
	}

	temperature := float64(c.config.Temperature)
	if req.Options.Temperature != nil {
		temperature = *req.Options.Temperature
	}
	params.Temperature = openai.Float(temperature)

	topP := float64(c.config.TopP)
	if req.Options.TopP > 0 {
		topP = req.Options.TopP
	}
	if topP > 0 {
		params.TopP = openai.Float(topP)
	}
	if c.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.config.MaxTokens))
	}
	if req.Options.ForceJSONFormat {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	return params
}

// Close is a no-op.
func (c *OpenAIClient) Close() error {
	return nil
}
