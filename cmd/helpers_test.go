package cmd

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

// newTestConfig returns defaults with API keys set on every model.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Evidence.Dir = t.TempDir()
	for name, m := range cfg.LLM.Models {
		m.APIKey = "test-key"
		cfg.LLM.Models[name] = m
	}
	return cfg
}

// fakeRunner returns a canned report and records what it was asked to run.
type fakeRunner struct {
	mu     sync.Mutex
	status schemas.RunStatus
	err    error
	calls  []schemas.RunRequest
}

func (f *fakeRunner) Run(ctx context.Context, runID string, req schemas.RunRequest) (*schemas.RunReport, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	status := f.status
	if status == "" {
		status = schemas.RunSuccess
	}
	return &schemas.RunReport{
		RunID:        runID,
		URL:          req.TargetURL,
		Instructions: req.Instructions,
		Timestamp:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:       status,
		Message:      "canned " + string(status),
		PageTitle:    "Fake Page",
		Results:      []schemas.ActionResult{},
		Evidence:     []schemas.Evidence{},
		Duration:     1500 * time.Millisecond,
	}, f.err
}

func (f *fakeRunner) requests() []schemas.RunRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]schemas.RunRequest(nil), f.calls...)
}

// stubAssemble replaces the pipeline wiring with runner for the test.
func stubAssemble(t *testing.T, runner reportRunner) *bool {
	t.Helper()
	closed := false
	original := assemble
	assemble = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
		return &components{
			runner:      runner,
			evidenceDir: cfg.Evidence.Dir,
			close: func() error {
				closed = true
				return nil
			},
		}, nil
	}
	t.Cleanup(func() { assemble = original })
	return &closed
}
