package browser

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
)

//go:embed evasions.js
var evasionsTemplate string

const defaultLocale = "en-US"

// evasionsScript renders the evasions for locale.
func evasionsScript(locale string) (string, error) {
	langs, err := json.Marshal(languagesFor(locale))
	if err != nil {
		return "", err
	}
	return strings.Replace(evasionsTemplate, "__LANGUAGES__", string(langs), 1), nil
}

// languagesFor expands "de-DE" to ["de-DE", "de"].
func languagesFor(locale string) []string {
	if locale == "" {
		locale = defaultLocale
	}
	langs := []string{locale}
	if base, _, ok := strings.Cut(locale, "-"); ok && base != "" {
		langs = append(langs, base)
	}
	return langs
}

// acceptLanguage renders languages as an Accept-Language header value.
func acceptLanguage(langs []string) string {
	parts := make([]string, len(langs))
	for i, l := range langs {
		if i == 0 {
			parts[i] = l
			continue
		}
		parts[i] = fmt.Sprintf("%s;q=%.1f", l, 1-0.1*float64(i))
	}
	return strings.Join(parts, ",")
}

// desktopUserAgent drops the "Headless" marker from the browser's own agent.
func desktopUserAgent(ua string) string {
	return strings.Replace(ua, "HeadlessChrome", "Chrome", 1)
}

// stealthTasks must run before device emulation so a device user agent wins.
func stealthTasks(locale string) (chromedp.Tasks, error) {
	script, err := evasionsScript(locale)
	if err != nil {
		return nil, fmt.Errorf("failed to render evasions: %w", err)
	}
	langs := languagesFor(locale)

	return chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, _, _, ua, _, err := cdpbrowser.GetVersion().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to read browser version: %w", err)
			}
			return emulation.SetUserAgentOverride(desktopUserAgent(ua)).
				WithAcceptLanguage(acceptLanguage(langs)).
				Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
		emulation.SetLocaleOverride().WithLocale(langs[0]),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage(langs)}),
	}, nil
}
