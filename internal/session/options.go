package session

import (
	"os"
	"strconv"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/config"
	"github.com/blackvectorops/ytghost/internal/identity"
	"github.com/blackvectorops/ytghost/internal/proxy"
)

// buildAllocatorOptions is the single, configuration-driven launch path for
// the browser executable. Evasion, stability and container flags are folded
// into one set; there is no second initialization path.
func buildAllocatorOptions(cfg *config.Config, id identity.Identity, active *proxy.Endpoint, logger *zap.Logger) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if cfg.Browser.Headless {
		opts = append(opts, chromedp.Headless)
	}

	opts = append(opts,
		// Automation-detection evasion. These two must always be present.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		// Stability flags.
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-pings", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.Flag("disable-component-extensions-with-background-pages", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-back-forward-cache", true),
		chromedp.Flag("disable-field-trial-config", true),

		chromedp.Flag("ignore-certificate-errors", cfg.Browser.IgnoreTLSErrors),
	)

	if cfg.Browser.ContainerMode {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-software-rasterizer", true),
			chromedp.Flag("memory-pressure-off", true),
		)
	} else if cfg.Browser.Headless {
		// GPU often causes issues in headless environments.
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	if cfg.Browser.DisableImages {
		// Images off for performance; JavaScript must stay enabled.
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	opts = append(opts,
		chromedp.UserAgent(id.UserAgent),
		chromedp.WindowSize(id.Viewport.Width, id.Viewport.Height),
	)

	if active != nil {
		opts = append(opts,
			chromedp.ProxyServer(active.URL()),
			// The browser will not trust certificates presented through
			// an arbitrary egress proxy.
			chromedp.Flag("ignore-certificate-errors", true),
		)
		logger.Info("Browser egress via proxy",
			zap.String("proxy", active.Host+":"+strconv.Itoa(active.Port)))
	}

	if path := discoverBinary(cfg.Browser.BinaryPaths); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
		logger.Debug("Browser binary discovered", zap.String("path", path))
	}

	for _, arg := range cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	return opts
}

// discoverBinary probes the fixed ordered list of install locations and
// returns the first that exists, or "" to let the allocator fall back to its
// own lookup.
func discoverBinary(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
