// File: api/schemas/run.go
package schemas

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DeviceProfile selects the emulated device for a run.
type DeviceProfile string

const (
	DeviceDesktop DeviceProfile = "desktop"
	DeviceMobile  DeviceProfile = "mobile"
	DeviceTablet  DeviceProfile = "tablet"
)

// Valid reports whether the profile is one of the known devices. The empty
// profile is treated as desktop.
func (d DeviceProfile) Valid() bool {
	switch d {
	case "", DeviceDesktop, DeviceMobile, DeviceTablet:
		return true
	}
	return false
}

// RunOptions tunes a single run.
type RunOptions struct {
	// WaitSeconds overrides the configured settle time when positive.
	WaitSeconds        int           `json:"waitSeconds,omitempty" yaml:"wait_seconds,omitempty"`
	CaptureScreenshots bool          `json:"captureScreenshots" yaml:"capture_screenshots"`
	DeviceProfile      DeviceProfile `json:"deviceProfile,omitempty" yaml:"device_profile,omitempty"`
}

// RunRequest is the input to one pipeline run. It is not modified once the
// run starts.
type RunRequest struct {
	TargetURL    string     `json:"url" yaml:"url"`
	Instructions string     `json:"instructions" yaml:"instructions"`
	Options      RunOptions `json:"options" yaml:"options"`
}

// Validate checks the request before any resources are acquired.
func (r RunRequest) Validate() error {
	if strings.TrimSpace(r.TargetURL) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(r.TargetURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", r.TargetURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", r.TargetURL)
	}
	if strings.TrimSpace(r.Instructions) == "" {
		return fmt.Errorf("instructions are required")
	}
	if !r.Options.DeviceProfile.Valid() {
		return fmt.Errorf("unknown device profile %q", r.Options.DeviceProfile)
	}
	if r.Options.WaitSeconds < 0 {
		return fmt.Errorf("waitSeconds must not be negative")
	}
	return nil
}

// Device returns the effective device profile.
func (r RunRequest) Device() DeviceProfile {
	if r.Options.DeviceProfile == "" {
		return DeviceDesktop
	}
	return r.Options.DeviceProfile
}

// SettleOverride returns the per-run settle time, or zero when the configured
// default applies.
func (r RunRequest) SettleOverride() time.Duration {
	if r.Options.WaitSeconds <= 0 {
		return 0
	}
	return time.Duration(r.Options.WaitSeconds) * time.Second
}
