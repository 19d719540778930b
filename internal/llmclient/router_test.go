package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// setupRouter creates a router over two mocks plus a log observer.
func setupRouter(t *testing.T) (*LLMRouter, *MockLLMClient, *MockLLMClient, *observer.ObservedLogs) {
	t.Helper()
	loggerCore, observedLogs := observer.New(zap.DebugLevel)
	logger := zap.New(loggerCore)

	fastClient := &MockLLMClient{Name: "FastClient"}
	powerfulClient := &MockLLMClient{Name: "PowerfulClient"}

	router, err := NewLLMRouter(logger, fastClient, powerfulClient)
	require.NoError(t, err)

	return router, fastClient, powerfulClient, observedLogs
}

func TestNewLLMRouter_Success(t *testing.T) {
	router, fastClient, powerfulClient, _ := setupRouter(t)

	require.NotNil(t, router)
	assert.Equal(t, fastClient, router.clients[schemas.TierFast])
	assert.Equal(t, powerfulClient, router.clients[schemas.TierPowerful])
}

func TestNewLLMRouter_Failure_MissingClients(t *testing.T) {
	logger := setupTestLogger(t)
	validClient := new(MockLLMClient)

	tests := []struct {
		name     string
		fast     schemas.LLMClient
		powerful schemas.LLMClient
	}{
		{"Missing Fast Client", nil, validClient},
		{"Missing Powerful Client", validClient, nil},
		{"Missing Both Clients", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := NewLLMRouter(logger, tt.fast, tt.powerful)
			assert.Error(t, err)
			assert.Nil(t, router)
			assert.Contains(t, err.Error(), "both fast and powerful tier clients must be provided")
		})
	}
}

func TestGenerate_Routing_TierFast(t *testing.T) {
	router, fastClient, powerfulClient, observedLogs := setupRouter(t)
	ctx := context.Background()
	req := schemas.GenerationRequest{Tier: schemas.TierFast, UserPrompt: "test fast prompt"}

	fastClient.On("Generate", ctx, req).Return("response from fast client", nil).Once()

	response, err := router.Generate(ctx, req)

	assert.NoError(t, err)
	assert.Equal(t, "response from fast client", response)
	fastClient.AssertExpectations(t)
	powerfulClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	require.Equal(t, 1, observedLogs.Len())
	logEntry := observedLogs.All()[0]
	assert.Equal(t, "Routing LLM request", logEntry.Message)
	assert.Equal(t, string(schemas.TierFast), logEntry.ContextMap()["tier"])
}

func TestGenerate_Routing_DefaultsToPowerful(t *testing.T) {
	router, fastClient, powerfulClient, observedLogs := setupRouter(t)
	ctx := context.Background()
	req := schemas.GenerationRequest{UserPrompt: "test default prompt"}

	// The original request is forwarded untouched; the tier is only resolved for routing.
	powerfulClient.On("Generate", ctx, req).Return("powerful", nil).Once()

	response, err := router.Generate(ctx, req)

	assert.NoError(t, err)
	assert.Equal(t, "powerful", response)
	powerfulClient.AssertExpectations(t)
	fastClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	assert.Equal(t, string(schemas.TierPowerful), observedLogs.All()[0].ContextMap()["tier"])
}

func TestGenerate_Error_Propagation(t *testing.T) {
	router, fastClient, _, _ := setupRouter(t)
	ctx := context.Background()
	req := schemas.GenerationRequest{Tier: schemas.TierFast}
	expectedError := errors.New("underlying client API failure")

	fastClient.On("Generate", ctx, req).Return("", expectedError).Once()

	response, err := router.Generate(ctx, req)

	assert.Empty(t, response)
	assert.ErrorIs(t, err, expectedError)
}

func TestGenerate_Error_InvalidTier(t *testing.T) {
	router, fastClient, powerfulClient, _ := setupRouter(t)

	response, err := router.Generate(context.Background(), schemas.GenerationRequest{Tier: "invalid-tier-xyz"})

	assert.Empty(t, response)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no LLM client configured for tier: invalid-tier-xyz")
	fastClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	powerfulClient.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestClose_ClosesEachClientOnce(t *testing.T) {
	logger := setupTestLogger(t)
	shared := new(MockLLMClient)
	shared.On("Close").Return(nil).Once()

	router, err := NewLLMRouter(logger, shared, shared)
	require.NoError(t, err)

	assert.NoError(t, router.Close())
	shared.AssertNumberOfCalls(t, "Close", 1)
}

func TestClose_JoinsErrors(t *testing.T) {
	router, fastClient, powerfulClient, _ := setupRouter(t)
	fastClient.On("Close").Return(errors.New("fast close failed"))
	powerfulClient.On("Close").Return(nil)

	err := router.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fast close failed")
}
