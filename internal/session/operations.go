package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/download"
	"github.com/blackvectorops/ytghost/internal/extract"
	"github.com/blackvectorops/ytghost/internal/stealth"
)

// DownloadRequest describes a single download operation.
type DownloadRequest struct {
	URL        string
	OutputPath string
	Format     string
	Quality    string
}

// DownloadOutcome carries the extracted metadata alongside the download
// itself, so a failed transfer can still report what was found on the page.
type DownloadOutcome struct {
	Info       extract.Result
	OutputPath string
}

// Navigate drives the browser to the watch page for the given URL and lets
// the page settle. The returned video ID identifies the target resource.
func (e *Engine) Navigate(ctx context.Context, rawURL string) (string, error) {
	videoID, err := extract.VideoID(rawURL)
	if err != nil {
		return "", err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state != StateActive && e.state != StateRotating {
		state := e.state
		e.mu.Unlock()
		return "", fmt.Errorf("session not active (state %s)", state)
	}
	id := e.current
	e.rotState.RequestCount++
	e.mu.Unlock()

	if e.cfg.AntiDetect.Enabled {
		// Re-assert the evasion script in case the renderer was replaced.
		if err := stealth.Reapply(e.browserCtx, id, e.cfg.AntiDetect.AdvancedEvasion, e.logger); err != nil {
			e.logger.Debug("Evasion reapply failed", zap.Error(err))
		}
	}

	if e.cfg.Behavior.Enabled {
		// Pace successive navigations so requests never fire back to back.
		if err := e.simulator.Throttle(ctx); err != nil {
			return "", err
		}
	}

	target := extract.WatchURL(videoID)
	e.logger.Info("Navigating", zap.String("url", target), zap.String("video_id", videoID))

	navCtx, cancel := context.WithTimeout(e.browserCtx, e.cfg.Browser.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(target)); err != nil {
		return "", fmt.Errorf("navigation to %s failed: %w", target, err)
	}

	if err := e.waitForBody(); err != nil {
		// One wait-and-continue retry: modern watch pages hydrate late and
		// the selector chains tolerate a partially rendered document.
		e.logger.Warn("Page body not visible yet, waiting and continuing", zap.Error(err))
		select {
		case <-time.After(e.cfg.Extractor.RetryWait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if e.cfg.Behavior.Enabled {
		if err := e.simulator.Pause(ctx, e.cfg.Behavior.SettleMin, e.cfg.Behavior.SettleMax); err != nil {
			return "", err
		}
		if err := e.simulator.Simulate(ctx); err != nil {
			e.logger.Debug("Behavior simulation aborted", zap.Error(err))
		}
	}

	// A small scroll forces lazily loaded metadata widgets to render.
	if err := chromedp.Run(e.browserCtx,
		chromedp.Evaluate(`window.scrollTo(0, 300);`, nil)); err != nil {
		e.logger.Debug("Anti-lazy-load scroll failed", zap.Error(err))
	}

	return videoID, nil
}

func (e *Engine) waitForBody() error {
	waitCtx, cancel := context.WithTimeout(e.browserCtx, e.cfg.Extractor.SelectorTimeout)
	defer cancel()
	return chromedp.Run(waitCtx, chromedp.WaitVisible("body", chromedp.ByQuery))
}

// GetInfo navigates to the video and extracts its metadata. Extraction
// itself cannot fail; only an invalid URL or a navigation failure produces
// an error.
func (e *Engine) GetInfo(ctx context.Context, rawURL string) (extract.Result, error) {
	videoID, err := e.Navigate(ctx, rawURL)
	if err != nil {
		return extract.Result{}, err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()
	res := e.pipeline.Extract(e.browserCtx, (*pageSurface)(e), videoID, extract.WatchURL(videoID))
	e.logger.Info("Extraction complete",
		zap.String("video_id", res.ID),
		zap.String("title", res.Title),
		zap.String("channel", res.Channel))
	return res, nil
}

// Download extracts the video's metadata, exports the session's cookies and
// hands the transfer to the external downloader. When the transfer fails
// after metadata was extracted, the outcome still carries the metadata.
func (e *Engine) Download(ctx context.Context, req DownloadRequest) (DownloadOutcome, error) {
	info, err := e.GetInfo(ctx, req.URL)
	if err != nil {
		return DownloadOutcome{}, err
	}
	out := DownloadOutcome{Info: info, OutputPath: req.OutputPath}

	cookies, err := e.exportCookies()
	if err != nil {
		// The downloader can often succeed without session cookies.
		e.logger.Warn("Cookie export failed, downloading without session cookies", zap.Error(err))
		cookies = nil
	}

	runErr := e.downloader.Run(ctx, download.Request{
		URL:        extract.WatchURL(info.ID),
		OutputPath: req.OutputPath,
		Format:     req.Format,
		Quality:    req.Quality,
	}, cookies)
	if runErr != nil {
		return out, runErr
	}
	return out, nil
}

// exportCookies pulls the browser's cookie jar for handoff to the external
// downloader.
func (e *Engine) exportCookies() ([]download.Cookie, error) {
	var out []download.Cookie
	err := chromedp.Run(e.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetAllCookies().Do(ctx)
		if err != nil {
			return fmt.Errorf("reading browser cookies: %w", err)
		}
		out = make([]download.Cookie, 0, len(cookies))
		for _, c := range cookies {
			out = append(out, exportedCookie(c))
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	e.logger.Debug("Cookies exported", zap.Int("count", len(out)))
	return out, nil
}

// exportedCookie maps one browser cookie to the downloader's jar format.
// Session cookies come off the wire with Expires -1; the Netscape format
// marks them with 0.
func exportedCookie(c *network.Cookie) download.Cookie {
	expires := int64(c.Expires)
	if expires < 0 {
		expires = 0
	}
	return download.Cookie{
		Domain:            c.Domain,
		IncludeSubdomains: strings.HasPrefix(c.Domain, "."),
		Path:              c.Path,
		Secure:            c.Secure,
		Expires:           expires,
		Name:              c.Name,
		Value:             c.Value,
	}
}

// pageSurface adapts the Engine to the behavior.Surface and extract.Page
// interfaces without widening the Engine's own API.
type pageSurface Engine

func (s *pageSurface) engine() *Engine { return (*Engine)(s) }

func (s *pageSurface) MoveMouse(ctx context.Context, x, y float64) error {
	return chromedp.Run(s.engine().browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func (s *pageSurface) ScrollBy(ctx context.Context, delta int) error {
	return chromedp.Run(s.engine().browserCtx,
		chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d);`, delta), nil))
}

func (s *pageSurface) TextLength(ctx context.Context) (int, error) {
	var n int
	err := chromedp.Run(s.engine().browserCtx,
		chromedp.Evaluate(`document.body ? document.body.innerText.length : 0`, &n))
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Text implements extract.Page. The caller bounds ctx with the selector
// wait budget; ctx must derive from the browser context.
func (s *pageSurface) Text(ctx context.Context, selector string) (string, error) {
	var out string
	if err := chromedp.Run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *pageSurface) Title(ctx context.Context) (string, error) {
	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}

func (s *pageSurface) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}
