package browser

import (
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

// launchFlag is one Chrome command-line switch.
type launchFlag struct {
	Name  string
	Value interface{}
}

// hardenedFlags are always passed. The sandbox is disabled so the browser
// runs inside unprivileged containers.
var hardenedFlags = []launchFlag{
	{"no-sandbox", true},
	{"disable-setuid-sandbox", true},
	{"disable-gpu", true},
	{"disable-extensions", true},
	{"disable-dev-shm-usage", true},
	{"disable-background-networking", true},
	{"disable-background-timer-throttling", true},
	{"disable-backgrounding-occluded-windows", true},
	{"disable-renderer-backgrounding", true},
	{"disable-popup-blocking", true},
	{"no-first-run", true},
	{"no-default-browser-check", true},
	{"password-store", "basic"},
	{"use-mock-keychain", true},
}

// launchFlags merges the hardened set, headless mode and the configured
// extra arguments. Extra arguments may be "--name" or "--name=value".
func launchFlags(cfg config.BrowserConfig) []launchFlag {
	flags := make([]launchFlag, 0, len(hardenedFlags)+len(cfg.Args)+4)
	flags = append(flags, hardenedFlags...)

	if cfg.Stealth {
		flags = append(flags, launchFlag{"disable-blink-features", "AutomationControlled"})
	} else {
		flags = append(flags, launchFlag{"enable-automation", true})
	}

	if cfg.Headless {
		flags = append(flags,
			launchFlag{"headless", true},
			launchFlag{"hide-scrollbars", true},
			launchFlag{"mute-audio", true},
		)
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, found := strings.Cut(arg, "="); found {
			flags = append(flags, launchFlag{key, strings.Trim(value, `"`)})
		} else {
			flags = append(flags, launchFlag{arg, true})
		}
	}
	return flags
}

// allocatorOptions converts the configuration into exec-allocator options.
// chromedp creates and removes a private user-data dir for each allocator.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	flags := launchFlags(cfg)
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags)+1)
	for _, f := range flags {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
