// Package evidence captures full-page screenshots and keeps the ordered
// evidence log of a run.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Capturer writes PNG screenshots to one directory.
type Capturer struct {
	dir       string
	urlPrefix string
	logger    *zap.Logger
	now       func() time.Time
}

// NewCapturer expands and creates the evidence directory.
func NewCapturer(cfg config.EvidenceConfig, logger *zap.Logger) (*Capturer, error) {
	dir, err := homedir.Expand(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand evidence dir '%s': %w", cfg.Dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create evidence dir '%s': %w", dir, err)
	}
	return &Capturer{
		dir:       dir,
		urlPrefix: cfg.URLPrefix,
		logger:    logger.Named("evidence"),
		now:       time.Now,
	}, nil
}

// Dir is the directory screenshots are written to.
func (c *Capturer) Dir() string { return c.dir }

// Capture screenshots page and stores it as <id>_<unixmillis>.png. The
// returned Evidence references the file by its URL path.
func (c *Capturer) Capture(ctx context.Context, page schemas.Page, id, description string) (schemas.Evidence, error) {
	png, err := page.Screenshot(ctx)
	if err != nil {
		return schemas.Evidence{}, fmt.Errorf("failed to capture screenshot '%s': %w", id, err)
	}

	ts := c.now().UTC()
	safeID := unsafeIDChars.ReplaceAllString(id, "_")
	if safeID == "" {
		safeID = "evidence"
	}
	file := fmt.Sprintf("%s_%d.png", safeID, ts.UnixMilli())

	if err := os.WriteFile(filepath.Join(c.dir, file), png, 0644); err != nil {
		return schemas.Evidence{}, fmt.Errorf("failed to write screenshot '%s': %w", file, err)
	}

	c.logger.Debug("Screenshot captured.", zap.String("id", id), zap.String("file", file), zap.Int("bytes", len(png)))
	return schemas.Evidence{
		ID:          id,
		Description: description,
		Timestamp:   ts,
		Path:        path.Join(c.urlPrefix, file),
	}, nil
}
