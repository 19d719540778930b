package browser

import (
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/scalpel-qa/api/schemas"
)

// DeviceEmulation describes the viewport and identity applied for a profile.
type DeviceEmulation struct {
	Width     int64
	Height    int64
	Scale     float64
	Mobile    bool
	UserAgent string
}

// deviceProfiles holds every profile that overrides the browser defaults.
// Desktop has no entry and keeps the launch defaults.
var deviceProfiles = map[schemas.DeviceProfile]DeviceEmulation{
	schemas.DeviceMobile: {
		Width:     375,
		Height:    812,
		Scale:     3,
		Mobile:    true,
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
	schemas.DeviceTablet: {
		Width:     768,
		Height:    1024,
		Scale:     2,
		Mobile:    true,
		UserAgent: "Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
}

// emulationFor returns the emulation for profile, or false for desktop.
func emulationFor(profile schemas.DeviceProfile) (DeviceEmulation, bool) {
	d, ok := deviceProfiles[profile]
	return d, ok
}

// Tasks returns the CDP calls that apply the emulation to the current tab.
func (d DeviceEmulation) Tasks() chromedp.Tasks {
	viewportOpts := []chromedp.EmulateViewportOption{chromedp.EmulateScale(d.Scale)}
	if d.Mobile {
		viewportOpts = append(viewportOpts, chromedp.EmulateMobile, chromedp.EmulateTouch)
	}
	return chromedp.Tasks{
		emulation.SetUserAgentOverride(d.UserAgent),
		chromedp.EmulateViewport(d.Width, d.Height, viewportOpts...),
	}
}
