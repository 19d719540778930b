// Package pipeline runs one test scenario end to end: open the page,
// snapshot it, plan, execute, verify and tear down.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/evidence"
	"github.com/xkilldash9x/scalpel-qa/internal/executor"
	"github.com/xkilldash9x/scalpel-qa/internal/extractor"
	"github.com/xkilldash9x/scalpel-qa/internal/observability"
	"github.com/xkilldash9x/scalpel-qa/internal/planner"
	"github.com/xkilldash9x/scalpel-qa/internal/verifier"
)

const sessionCloseTimeout = 15 * time.Second

// Runner executes runs. It holds no per-run state and is safe for concurrent
// use; every run gets its own session.
type Runner struct {
	logger    *zap.Logger
	opener    schemas.SessionOpener
	capturer  executor.EvidenceCapturer
	extractor *extractor.Extractor
	planner   *planner.Planner
	executor  *executor.Executor
	verifier  *verifier.Verifier
}

func NewRunner(cfg *config.Config, opener schemas.SessionOpener, llmClient schemas.LLMClient, capturer executor.EvidenceCapturer, logger *zap.Logger) *Runner {
	return &Runner{
		logger:    logger.Named("pipeline"),
		opener:    opener,
		capturer:  capturer,
		extractor: extractor.New(logger),
		planner:   planner.New(logger, llmClient),
		executor:  executor.New(cfg.Executor, capturer, logger),
		verifier:  verifier.New(cfg.Verifier, llmClient, logger),
	}
}

// Run always returns a report. A fatal error is also returned and the report
// then has status "error" with the diagnostic attached.
func (r *Runner) Run(ctx context.Context, runID string, req schemas.RunRequest) (*schemas.RunReport, error) {
	start := time.Now()
	done := observability.RunStarted()
	defer done()

	logger := r.logger.With(zap.String("run_id", runID))
	report := &schemas.RunReport{
		RunID:        runID,
		URL:          req.TargetURL,
		Instructions: req.Instructions,
		Timestamp:    start.UTC(),
		Results:      make([]schemas.ActionResult, 0),
		Evidence:     make([]schemas.Evidence, 0),
		Session:      schemas.SessionMetadata{DeviceProfile: req.Device()},
	}
	finish := func(status schemas.RunStatus) {
		report.Status = status
		report.Duration = time.Since(start)
		observability.RecordRun(string(status), report.Duration)
	}
	fail := func(err error) (*schemas.RunReport, error) {
		report.Message = err.Error()
		report.Error = &schemas.ErrorRecord{
			Kind:    schemas.ErrorKind(err),
			Message: err.Error(),
			Stack:   string(debug.Stack()),
		}
		finish(schemas.RunError)
		logger.Error("Run aborted.", zap.String("kind", report.Error.Kind), zap.Error(err))
		return report, err
	}

	logger.Info("Starting run.", zap.String("url", req.TargetURL), zap.String("device", string(req.Device())))

	if err := req.Validate(); err != nil {
		return fail(fmt.Errorf("%w: invalid run request: %w", schemas.ErrConfiguration, err))
	}

	session, err := r.opener.Open(ctx, req)
	if err != nil {
		return fail(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseTimeout)
		defer cancel()
		session.Close(closeCtx)
	}()

	log := evidence.NewLog()
	defer func() { report.Evidence = log.Entries() }()

	if req.Options.CaptureScreenshots {
		r.checkpoint(ctx, logger, session, log, "initial", "Initial page state")
	}

	if md, err := session.Metadata(ctx); err != nil {
		logger.Warn("Failed to read session metadata.", zap.Error(err))
	} else {
		report.Session = md
	}

	snapshot, err := r.extractor.Extract(ctx, session)
	if err != nil {
		return fail(err)
	}
	report.Snapshot = snapshot
	report.PageTitle = snapshot.Title

	plan, err := r.planner.Plan(ctx, req.Instructions, snapshot)
	if err != nil {
		return fail(err)
	}
	report.Plan = plan

	report.Results = r.executor.Execute(ctx, session, plan.Actions, log)
	report.SuccessRate = schemas.SuccessRate(report.Results)

	if title, err := session.Title(ctx); err != nil {
		logger.Warn("Failed to read page title after execution.", zap.Error(err))
	} else if title != "" {
		report.PageTitle = title
	}

	verification := r.verifier.Verify(ctx, session, verifier.Input{
		Instructions: req.Instructions,
		Plan:         plan,
		Results:      report.Results,
		Evidence:     log.Entries(),
		PageTitle:    report.PageTitle,
	})
	report.Verification = &verification
	report.Message = verification.Message

	if req.Options.CaptureScreenshots {
		r.checkpoint(ctx, logger, session, log, "final", "Final page state")
	}

	status := schemas.RunFailed
	if verification.Success {
		status = schemas.RunSuccess
	}
	finish(status)

	logger.Info("Run complete.",
		zap.String("status", string(status)),
		zap.Float64("success_rate", report.SuccessRate),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// checkpoint captures evidence; a failure is logged and ignored.
func (r *Runner) checkpoint(ctx context.Context, logger *zap.Logger, page schemas.Page, log *evidence.Log, id, description string) {
	ev, err := r.capturer.Capture(ctx, page, id, description)
	if err != nil {
		logger.Warn("Evidence capture failed.", zap.String("checkpoint", id), zap.Error(err))
		return
	}
	log.Append(ev)
}
