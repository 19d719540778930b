// internal/browser/browser_helper_test.go
package browser

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

const defaultBrowserTestTimeout = 90 * time.Second

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"headless-shell",
}

// requireChrome skips browser integration tests when no Chrome binary is
// installed or -short is set.
func requireChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	for _, name := range chromeCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("no Chrome or Chromium binary found in PATH")
	return ""
}

// createTestConfig returns a browser configuration tuned for fast tests.
func createTestConfig(execPath string) config.BrowserConfig {
	cfg := config.NewDefaultConfig().Browser
	cfg.Headless = true
	cfg.ExecPath = execPath
	cfg.SettleTime = 0
	cfg.ConsentTimeout = 500 * time.Millisecond
	cfg.NavigationTimeout = 30 * time.Second
	cfg.NetworkIdleQuiet = 100 * time.Millisecond
	return cfg
}

func newTestOpener(t *testing.T) *Opener {
	t.Helper()
	path := requireChrome(t)
	return NewOpener(createTestConfig(path), zaptest.NewLogger(t))
}

// createStaticTestServer returns a server that serves htmlContent.
func createStaticTestServer(t *testing.T, htmlContent string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintln(w, htmlContent)
	}))
	t.Cleanup(server.Close)
	return server
}
