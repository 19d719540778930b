package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

const networkIdleCheckFrequency = 50 * time.Millisecond

// idleTracker counts in-flight requests from CDP network events.
type idleTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
}

func newIdleTracker() *idleTracker {
	return &idleTracker{inflight: make(map[network.RequestID]struct{})}
}

// handleEvent is registered with chromedp.ListenTarget.
func (t *idleTracker) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(ev.RequestID)
	case *network.EventLoadingFinished:
		t.finished(ev.RequestID)
	case *network.EventLoadingFailed:
		t.finished(ev.RequestID)
	}
}

// started records a request. Redirects reuse the id and are counted once.
func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	t.inflight[id] = struct{}{}
	t.mu.Unlock()
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	delete(t.inflight, id)
	t.mu.Unlock()
}

func (t *idleTracker) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// wait blocks until no request has been in flight for quietPeriod.
func (t *idleTracker) wait(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(networkIdleCheckFrequency)
	defer ticker.Stop()

	var idleSince time.Time
	for {
		if t.active() > 0 {
			idleSince = time.Time{}
		} else {
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
			if time.Since(idleSince) >= quietPeriod {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
