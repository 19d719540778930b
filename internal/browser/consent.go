package browser

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// genericConsentSelectors match the accept button of common consent banners.
var genericConsentSelectors = []string{
	"#onetrust-accept-btn-handler",
	"#L2AGLb",
	"button#accept-cookies",
	"button#cookie-accept",
	".fc-cta-consent",
	".cc-allow",
	"[data-testid='cookie-policy-manage-dialog-accept-button']",
	"button[id*='accept' i]",
	"button[class*='accept' i]",
	"button[aria-label*='accept' i]",
	"button[aria-label*='consent' i]",
	"[role='button'][id*='consent' i]",
}

// consentSelector builds the combined selector for rawURL. A per-host
// override is listed first; "www." is ignored when matching hosts.
func consentSelector(rawURL string, overrides map[string]string) string {
	selectors := make([]string, 0, len(genericConsentSelectors)+1)

	if u, err := url.Parse(rawURL); err == nil {
		host := strings.ToLower(u.Hostname())
		if sel, ok := overrides[host]; ok {
			selectors = append(selectors, sel)
		} else if sel, ok := overrides[strings.TrimPrefix(host, "www.")]; ok {
			selectors = append(selectors, sel)
		}
	}

	selectors = append(selectors, genericConsentSelectors...)
	return strings.Join(selectors, ", ")
}

// dismissConsent clicks the first consent button visible within timeout.
// It never fails the run.
func (s *Session) dismissConsent(ctx context.Context, rawURL string, timeout time.Duration) {
	sel := consentSelector(rawURL, s.consent)

	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.run(clickCtx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		s.logger.Debug("No cookie consent banner dismissed.", zap.Error(err))
		return
	}
	s.logger.Info("Dismissed cookie consent banner.")
}
