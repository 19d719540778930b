// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

const closeTimeout = 10 * time.Second

// Opener launches one isolated browser per run.
type Opener struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

var _ schemas.SessionOpener = (*Opener)(nil)

// NewOpener creates an Opener for the given browser configuration.
func NewOpener(cfg config.BrowserConfig, logger *zap.Logger) *Opener {
	return &Opener{cfg: cfg, logger: logger.Named("browser")}
}

// Open launches the browser, applies device emulation, navigates to the
// target, dismisses a consent banner and waits for the page to settle. Any
// failure closes the browser and returns an error wrapping ErrSession.
func (o *Opener) Open(ctx context.Context, req schemas.RunRequest) (schemas.Session, error) {
	s := newSession(ctx, o.cfg, req.Device(), o.logger)
	fail := func(err error) (schemas.Session, error) {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		s.Close(closeCtx)
		return nil, fmt.Errorf("%w: %w", schemas.ErrSession, err)
	}

	if err := s.launch(ctx); err != nil {
		return fail(fmt.Errorf("browser launch failed: %w", err))
	}
	if err := s.Navigate(ctx, req.TargetURL); err != nil {
		return fail(err)
	}

	s.dismissConsent(ctx, req.TargetURL, o.cfg.ConsentTimeout)

	settle := o.cfg.SettleTime
	if override := req.SettleOverride(); override > 0 {
		settle = override
	}
	s.logger.Debug("Waiting for dynamic content to settle.", zap.Duration("settle_time", settle))
	if err := sleepContext(ctx, settle); err != nil {
		return fail(fmt.Errorf("interrupted while settling: %w", err))
	}
	return s, nil
}

// Session is one browser process with one tab. It implements schemas.Session.
type Session struct {
	id      string
	logger  *zap.Logger
	cfg     config.BrowserConfig
	device  schemas.DeviceProfile
	consent map[string]string
	idle    *idleTracker

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	closeOnce sync.Once
}

var _ schemas.Session = (*Session)(nil)

func newSession(ctx context.Context, cfg config.BrowserConfig, device schemas.DeviceProfile, logger *zap.Logger) *Session {
	id := uuid.New().String()
	s := &Session{
		id:      id,
		logger:  logger.With(zap.String("session_id", id)),
		cfg:     cfg,
		device:  device,
		consent: cfg.ConsentSelectorMap(),
		idle:    newIdleTracker(),
	}

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	s.tabCtx, s.tabCancel = chromedp.NewContext(s.allocCtx,
		chromedp.WithLogf(s.logger.Sugar().Debugf),
		chromedp.WithErrorf(s.logger.Sugar().Debugf),
	)
	chromedp.ListenTarget(s.tabCtx, s.idle.handleEvent)
	return s
}

// launch starts the browser process and prepares the tab. The first Run on a
// chromedp context allocates the browser, so it must not carry a deadline;
// the launch timeout is enforced by abandoning the wait instead.
func (s *Session) launch(ctx context.Context) error {
	tasks := chromedp.Tasks{network.Enable()}
	if s.cfg.Stealth {
		st, err := stealthTasks(s.cfg.Locale)
		if err != nil {
			return err
		}
		tasks = append(tasks, st)
	}
	if d, ok := emulationFor(s.device); ok {
		tasks = append(tasks, d.Tasks())
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(s.tabCtx, tasks) }()

	timer := time.NewTimer(s.cfg.LaunchTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-timer.C:
		return fmt.Errorf("browser did not start within %s", s.cfg.LaunchTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("Browser session started.", zap.String("device", string(s.device)))
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close shuts the tab, the browser and the allocator. It is safe to call more
// than once and only logs failures.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.tabCtx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Error while closing browser tab.", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Warn("Timed out closing browser tab; killing the process.", zap.Error(ctx.Err()))
		}

		s.tabCancel()
		s.allocCancel()
		s.logger.Info("Browser session closed.")
	})
}

// run executes actions bounded by both the tab lifetime and ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for document readiness and network
// quiescence, all within the navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	s.logger.Info("Navigating.", zap.String("url", url))
	if err := s.run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if err := s.idle.wait(navCtx, s.cfg.NetworkIdleQuiet); err != nil {
		return fmt.Errorf("network did not become idle after loading %s: %w", url, err)
	}
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read document url: %w", err)
	}
	return location, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read document html: %w", err)
	}
	return html, nil
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
		return "", fmt.Errorf("failed to read body text: %w", err)
	}
	return text, nil
}

func (s *Session) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %q not present after %s: %w", selector, timeout, err)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %q not visible after %s: %w", selector, timeout, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeReady)); err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// Fill types value into the element as keystrokes.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := s.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery, chromedp.NodeReady)); err != nil {
		return fmt.Errorf("fill of %q failed: %w", selector, err)
	}
	return nil
}

const selectOptionJS = `(function(sel, val) {
	const el = document.querySelector(sel);
	if (!el) { return "missing"; }
	const match = Array.from(el.options || []).find(o => o.value === val || o.text.trim() === val);
	if (!match) { return "nooption"; }
	el.value = match.value;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return "ok";
})(%s, %s)`

// SelectOption selects the option whose value or label equals value.
func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	var outcome string
	if err := s.run(ctx, chromedp.Evaluate(script(selectOptionJS, selector, value), &outcome)); err != nil {
		return fmt.Errorf("select on %q failed: %w", selector, err)
	}
	switch outcome {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("select element %q not found", selector)
	default:
		return fmt.Errorf("option %q not found in %q", value, selector)
	}
}

const submitFormJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) { return "missing"; }
	const form = el.tagName === "FORM" ? el : (el.form || el.closest("form"));
	if (!form) { return "noform"; }
	if (typeof form.requestSubmit === "function") { form.requestSubmit(); } else { form.submit(); }
	return "ok";
})(%s)`

// SubmitForm submits the form selected by, or containing, selector.
func (s *Session) SubmitForm(ctx context.Context, selector string) error {
	var outcome string
	if err := s.run(ctx, chromedp.Evaluate(script(submitFormJS, selector), &outcome)); err != nil {
		return fmt.Errorf("submit of %q failed: %w", selector, err)
	}
	switch outcome {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("element %q not found", selector)
	default:
		return fmt.Errorf("element %q is not inside a form", selector)
	}
}

const textContentJS = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) { return { found: false, text: "" }; }
	return { found: true, text: (el.innerText || el.textContent || "").trim() };
})(%s)`

func (s *Session) TextContent(ctx context.Context, selector string) (string, bool, error) {
	var res struct {
		Found bool   `json:"found"`
		Text  string `json:"text"`
	}
	if err := s.run(ctx, chromedp.Evaluate(script(textContentJS, selector), &res)); err != nil {
		return "", false, fmt.Errorf("text read of %q failed: %w", selector, err)
	}
	return res.Text, res.Found, nil
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

func (s *Session) Metadata(ctx context.Context) (schemas.SessionMetadata, error) {
	var res struct {
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		UserAgent string `json:"userAgent"`
	}
	const js = `({ width: window.innerWidth, height: window.innerHeight, userAgent: navigator.userAgent })`
	if err := s.run(ctx, chromedp.Evaluate(js, &res)); err != nil {
		return schemas.SessionMetadata{}, fmt.Errorf("failed to read session metadata: %w", err)
	}
	return schemas.SessionMetadata{
		Viewport:      schemas.Viewport{Width: res.Width, Height: res.Height},
		UserAgent:     res.UserAgent,
		DeviceProfile: s.device,
	}, nil
}

// script fills a JS template with JSON-quoted string arguments.
func script(template string, args ...string) string {
	quoted := make([]interface{}, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		quoted[i] = string(b)
	}
	return fmt.Sprintf(template, quoted...)
}
