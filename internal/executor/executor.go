// Package executor runs an ActionPlan against a page, one action at a time.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
	"github.com/xkilldash9x/scalpel-qa/internal/evidence"
	"github.com/xkilldash9x/scalpel-qa/internal/extractor"
	"github.com/xkilldash9x/scalpel-qa/internal/observability"
)

// EvidenceCapturer stores a screenshot of page.
type EvidenceCapturer interface {
	Capture(ctx context.Context, page schemas.Page, id, description string) (schemas.Evidence, error)
}

// Executor runs actions strictly in order. A failing action never stops the
// ones after it.
type Executor struct {
	logger   *zap.Logger
	cfg      config.ExecutorConfig
	capturer EvidenceCapturer
	poller   Poller
}

func New(cfg config.ExecutorConfig, capturer EvidenceCapturer, logger *zap.Logger) *Executor {
	return &Executor{
		logger:   logger.Named("executor"),
		cfg:      cfg,
		capturer: capturer,
		poller: Poller{
			Interval:    cfg.PollInterval,
			Timeout:     cfg.PollTimeout,
			Placeholder: cfg.PollPlaceholder,
		},
	}
}

// Execute returns exactly one result per action, in plan order. Screenshot
// actions append to log.
func (e *Executor) Execute(ctx context.Context, page schemas.Page, actions []schemas.Action, log *evidence.Log) []schemas.ActionResult {
	results := make([]schemas.ActionResult, 0, len(actions))

	for i, action := range actions {
		logger := e.logger.With(zap.Int("index", i))
		if action != nil {
			logger = logger.With(zap.String("type", string(action.Type())), zap.String("target", action.Target()))
		}
		logger.Info("Executing action.")

		result := e.runAction(ctx, page, action, log)
		results = append(results, result)
		observability.RecordAction(metricType(action), string(result.Status))

		switch result.Status {
		case schemas.StatusFailed:
			logger.Warn("Action failed.", zap.String("error", result.Error))
		case schemas.StatusSkipped:
			logger.Info("Action skipped.", zap.String("reason", result.Error))
		default:
			logger.Debug("Action succeeded.")
		}

		if err := sleep(ctx, e.cfg.ActionPause); err != nil {
			logger.Debug("Action pause interrupted.", zap.Error(err))
		}
	}
	return results
}

// runAction isolates one action, turning errors and panics into a failed
// result.
func (e *Executor) runAction(ctx context.Context, page schemas.Page, action schemas.Action, log *evidence.Log) (result schemas.ActionResult) {
	result = schemas.ActionResult{Action: action}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered panic during action.", zap.Any("panic", r), zap.Stack("stack"))
			result.Status = schemas.StatusFailed
			result.Data = nil
			result.Error = fmt.Sprintf("%v: panic: %v", schemas.ErrAction, r)
		}
	}()

	if unknown, ok := action.(schemas.UnknownAction); ok {
		result.Status = schemas.StatusSkipped
		result.Error = fmt.Sprintf("unsupported action type %q", unknown.RawType)
		return result
	}
	if action == nil {
		result.Status = schemas.StatusSkipped
		result.Error = "empty action"
		return result
	}

	data, err := e.dispatch(ctx, page, action, log)
	if err != nil {
		result.Status = schemas.StatusFailed
		result.Data = data
		result.Error = fmt.Errorf("%w: %w", schemas.ErrAction, err).Error()
		return result
	}
	result.Status = schemas.StatusSuccess
	result.Data = data
	return result
}

func (e *Executor) dispatch(ctx context.Context, page schemas.Page, action schemas.Action, log *evidence.Log) (interface{}, error) {
	switch a := action.(type) {
	case schemas.ClickAction:
		return nil, e.whenPresent(ctx, page, a.Selector, func(ctx context.Context) error { return page.Click(ctx, a.Selector) })
	case schemas.FillAction:
		return nil, e.whenPresent(ctx, page, a.Selector, func(ctx context.Context) error { return page.Fill(ctx, a.Selector, a.Value) })
	case schemas.SelectAction:
		return nil, e.whenPresent(ctx, page, a.Selector, func(ctx context.Context) error { return page.SelectOption(ctx, a.Selector, a.Value) })
	case schemas.SubmitAction:
		return nil, e.whenPresent(ctx, page, a.Selector, func(ctx context.Context) error { return page.SubmitForm(ctx, a.Selector) })
	case schemas.ExtractAction:
		return e.extract(ctx, page, a)
	case schemas.WaitAction:
		if a.Visible {
			return nil, page.WaitVisible(ctx, a.Selector, e.cfg.VisibleTimeout)
		}
		return nil, sleep(ctx, a.Delay)
	case schemas.NavigateAction:
		if strings.TrimSpace(a.URL) == "" {
			return nil, fmt.Errorf("navigate action has no URL")
		}
		return nil, page.Navigate(ctx, a.URL)
	case schemas.ScreenshotAction:
		ev, err := e.capturer.Capture(ctx, page, a.ScreenshotID(), a.Description)
		if err != nil {
			return nil, err
		}
		ev = log.Append(ev)
		return ev.Path, nil
	default:
		return nil, fmt.Errorf("no handler for action type %q", action.Type())
	}
}

// whenPresent waits for selector, then runs act bounded by the selector
// timeout. The element can still vanish between the two steps.
func (e *Executor) whenPresent(ctx context.Context, page schemas.Page, selector string, act func(ctx context.Context) error) error {
	if err := page.WaitPresent(ctx, selector, e.cfg.SelectorTimeout); err != nil {
		return fmt.Errorf("element %q not found: %w", selector, err)
	}
	actCtx, cancel := context.WithTimeout(ctx, e.cfg.SelectorTimeout)
	defer cancel()
	if err := act(actCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("element %q not interactable within %s: %w", selector, e.cfg.SelectorTimeout, err)
		}
		return err
	}
	return nil
}

func (e *Executor) extract(ctx context.Context, page schemas.Page, a schemas.ExtractAction) (interface{}, error) {
	if a.IsList() {
		html, err := page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		location, err := page.URL(ctx)
		if err != nil {
			e.logger.Debug("Could not read document URL, list links stay as written.", zap.Error(err))
			location = ""
		}
		items, err := extractor.ListItems(html, a.Selector, location)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return items, fmt.Errorf("no elements matched %q", a.Selector)
		}
		return items, nil
	}

	if strings.Contains(strings.ToLower(a.Selector), "ip") {
		text, ok := e.poller.Poll(ctx, page, a.Selector)
		if !ok {
			return nil, fmt.Errorf("no content at %q within %s", a.Selector, e.poller.Timeout)
		}
		return text, nil
	}

	text, found, err := page.TextContent(ctx, a.Selector)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("element %q not found", a.Selector)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("element %q has no text", a.Selector)
	}
	return text, nil
}

// metricType bounds the action label cardinality.
func metricType(action schemas.Action) string {
	switch action.(type) {
	case nil, schemas.UnknownAction:
		return "unknown"
	}
	return string(action.Type())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
