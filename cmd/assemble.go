package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/browser"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/evidence"
	"github.com/xkilldash9x/scalpel-qa/internal/llmclient"
	"github.com/xkilldash9x/scalpel-qa/internal/pipeline"
)

// reportRunner is the part of the pipeline the commands drive.
type reportRunner interface {
	Run(ctx context.Context, runID string, req schemas.RunRequest) (*schemas.RunReport, error)
}

// components is a wired pipeline plus what the commands need around it.
type components struct {
	runner      reportRunner
	evidenceDir string
	close       func() error
}

// assemble is swapped out in tests.
var assemble = assemblePipeline

// assemblePipeline wires the reasoning client, browser opener and evidence
// capturer into a runner. Credentials must already be validated.
func assemblePipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	llm, err := llmclient.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create reasoning client: %w", schemas.ErrConfiguration, err)
	}

	capturer, err := evidence.NewCapturer(cfg.Evidence, logger)
	if err != nil {
		_ = llm.Close()
		return nil, fmt.Errorf("%w: %w", schemas.ErrConfiguration, err)
	}

	opener := browser.NewOpener(cfg.Browser, logger)
	return &components{
		runner:      pipeline.NewRunner(cfg, opener, llm, capturer, logger),
		evidenceDir: capturer.Dir(),
		close:       llm.Close,
	}, nil
}
