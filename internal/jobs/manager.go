// Package jobs runs pipeline runs in the background and tracks their status.
package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// RunFunc executes one run. It is satisfied by (*pipeline.Runner).Run.
type RunFunc func(ctx context.Context, runID string, req schemas.RunRequest) (*schemas.RunReport, error)

// Manager starts one goroutine per submitted run.
type Manager struct {
	logger   *zap.Logger
	registry schemas.JobRegistry
	run      RunFunc
	baseCtx  context.Context
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewManager creates a Manager. Runs are detached from submitting request
// contexts but are canceled when baseCtx is.
func NewManager(baseCtx context.Context, registry schemas.JobRegistry, run RunFunc, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger.Named("jobs"),
		registry: registry,
		run:      run,
		baseCtx:  baseCtx,
		now:      time.Now,
	}
}

// Submit validates req, records it as running and starts it. It returns the
// job id.
func (m *Manager) Submit(ctx context.Context, req schemas.RunRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	now := m.now().UTC()
	m.registry.Put(schemas.JobRecord{
		ID:        id,
		Status:    schemas.JobRunning,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	})

	runCtx, cancel := m.detach(ctx)
	m.wg.Add(1)
	go func() {
		defer cancel()
		m.execute(runCtx, id, req, now)
	}()

	m.logger.Info("Run submitted.", zap.String("job_id", id), zap.String("url", req.TargetURL))
	return id, nil
}

// detach drops the request's cancellation but keeps the base context's.
func (m *Manager) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(m.baseCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (m *Manager) execute(ctx context.Context, id string, req schemas.RunRequest, created time.Time) {
	defer m.wg.Done()
	record := schemas.JobRecord{ID: id, Request: req, CreatedAt: created}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Recovered panic in run.", zap.String("job_id", id), zap.Any("panic", r))
			record.Status = schemas.JobError
			record.Report = nil
			record.Error = &schemas.ErrorRecord{
				Kind:    "InternalError",
				Message: fmt.Sprintf("panic: %v", r),
				Stack:   string(debug.Stack()),
			}
			record.UpdatedAt = m.now().UTC()
			m.registry.Put(record)
		}
	}()

	report, err := m.run(ctx, id, req)
	record.Report = report
	switch {
	case err != nil:
		record.Status = schemas.JobError
		if report != nil && report.Error != nil {
			record.Error = report.Error
		} else {
			record.Error = &schemas.ErrorRecord{Kind: schemas.ErrorKind(err), Message: err.Error()}
		}
	case report != nil && report.Status == schemas.RunSuccess:
		record.Status = schemas.JobSuccess
	default:
		record.Status = schemas.JobFailed
	}
	record.UpdatedAt = m.now().UTC()
	m.registry.Put(record)

	m.logger.Info("Run finished.", zap.String("job_id", id), zap.String("status", string(record.Status)))
}

// Get returns the record for id.
func (m *Manager) Get(id string) (schemas.JobRecord, bool) {
	return m.registry.Get(id)
}

// Wait blocks until every submitted run has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
