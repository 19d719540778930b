package executor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

var errNotReady = errors.New("text not ready")

// Poller re-reads an element until it shows real content. It is used for
// values the page fills in asynchronously, such as a detected IP address.
type Poller struct {
	Interval    time.Duration
	Timeout     time.Duration
	Placeholder string
}

// Poll reads selector every Interval until the text is accepted or Timeout
// elapses. A timeout returns ("", false); it is not an error.
func (p Poller) Poll(ctx context.Context, page schemas.Page, selector string) (string, bool) {
	pollCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var result string
	operation := func() error {
		text, found, err := page.TextContent(pollCtx, selector)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if !found || !p.accept(text) {
			return errNotReady
		}
		result = text
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(p.Interval), pollCtx)
	if err := backoff.Retry(operation, b); err != nil {
		return "", false
	}
	return result, true
}

func (p Poller) accept(text string) bool {
	if text == "" {
		return false
	}
	return p.Placeholder == "" || !strings.Contains(text, p.Placeholder)
}
