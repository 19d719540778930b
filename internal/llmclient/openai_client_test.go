package llmclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

const openAIOKBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
}`

func setupOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.LLMModelConfig{
		Provider: config.ProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
		Endpoint: server.URL,
	}
	client, err := NewOpenAIClient(cfg, setupTestLogger(t))
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_MissingAPIKey(t *testing.T) {
	client, err := NewOpenAIClient(config.LLMModelConfig{Provider: config.ProviderOpenAI}, setupTestLogger(t))
	assert.Nil(t, client)
	assert.ErrorIs(t, err, schemas.ErrConfiguration)
}

func TestOpenAIGenerate_Success(t *testing.T) {
	var payload map[string]interface{}
	client := setupOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openAIOKBody)
	})

	text, err := client.Generate(context.Background(), createTestRequest())

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	assert.Equal(t, "gpt-4o-mini", payload["model"])
	messages, ok := payload["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, payload["response_format"])
	assert.InDelta(t, 0.2, payload["temperature"], 1e-9)
}

func TestOpenAIGenerate_APIErrorIsNotRetried(t *testing.T) {
	calls := 0
	client := setupOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	})

	_, err := client.Generate(context.Background(), createTestRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai API request failed")
	assert.Equal(t, 1, calls)
}

func TestOpenAIGenerate_EmptyChoices(t *testing.T) {
	client := setupOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})

	_, err := client.Generate(context.Background(), createTestRequest())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIGenerate_ExplicitZeroTemperature(t *testing.T) {
	var payload map[string]interface{}
	client := setupOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, openAIOKBody)
	})
	client.config.Temperature = 0.7

	req := createTestRequest()
	req.Options.Temperature = schemas.Temperature(0)
	_, err := client.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Contains(t, payload, "temperature")
	assert.Equal(t, 0.0, payload["temperature"])

	req.Options.Temperature = nil
	_, err = client.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, payload["temperature"], 1e-6)
}
