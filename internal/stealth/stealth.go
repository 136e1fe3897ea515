// Package stealth pushes a fixed, versioned catalog of script-level patches
// into the controlled browser to mask automation signals, and applies the
// identity-surface overrides (user agent, client hints, viewport, timezone,
// locale, headers) over CDP.
package stealth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/identity"
)

// EvasionsJS holds the embedded JavaScript patch catalog. Every patch is
// individually try/catch wrapped and idempotent, so the catalog is safe to
// evaluate repeatedly on a live document.
//
//go:embed evasions.js
var EvasionsJS string

// jsPersona is the subset of the Identity the patch catalog reads, plus the
// flag gating the fingerprint-noise patches.
type jsPersona struct {
	Advanced            bool     `json:"advanced"`
	Languages           []string `json:"languages"`
	Timezone            string   `json:"timezone"`
	DeviceMemory        int      `json:"deviceMemory"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	ColorDepth          int      `json:"colorDepth"`
	Screen              struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"screen"`
}

// scriptFor prefixes the catalog with the persona constant it reads.
func scriptFor(id identity.Identity, advanced bool) (string, error) {
	p := jsPersona{
		Advanced:            advanced,
		Languages:           languagesOf(id),
		Timezone:            id.Timezone,
		DeviceMemory:        id.DeviceMemory,
		HardwareConcurrency: id.HardwareConcurrency,
		ColorDepth:          id.ColorDepth,
	}
	p.Screen.Width = id.Viewport.Width
	p.Screen.Height = id.Viewport.Height

	personaJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("stealth: failed to marshal persona: %w", err)
	}
	return fmt.Sprintf("const YTGHOST_PERSONA = %s;\n%s", personaJSON, EvasionsJS), nil
}

func languagesOf(id identity.Identity) []string {
	primary := id.Locale
	base := primary
	if i := strings.IndexByte(primary, '-'); i > 0 {
		base = primary[:i]
	}
	if base == primary {
		return []string{primary}
	}
	return []string{primary, base}
}

// Apply orchestrates the full stealth profile as a chromedp action sequence:
// header and emulation overrides first, then registration of the patch
// catalog for every new document.
func Apply(id identity.Identity, advanced bool, logger *zap.Logger) chromedp.Action {
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		setExtraHTTPHeaders(id, l),
		setUserAgentOverride(id, l),
		setDeviceMetrics(id, l),
		setEnvironmentOverrides(id, l),
		registerEvasionScript(id, advanced, l),
		page.SetWebLifecycleState(page.WebLifecycleStateActive),
		chromedp.ActionFunc(func(ctx context.Context) error {
			l.Debug("Stealth profile applied", zap.String("user_agent", id.UserAgent))
			return nil
		}),
	}
}

// Reapply evaluates the patch catalog on the current document. It is used
// opportunistically before each navigation; a failure is reported to the
// caller, who treats it as non-fatal.
func Reapply(ctx context.Context, id identity.Identity, advanced bool, logger *zap.Logger) error {
	script, err := scriptFor(id, advanced)
	if err != nil {
		return err
	}
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("stealth: failed to re-evaluate evasion catalog: %w", err)
	}
	logger.Debug("Evasion catalog re-applied before navigation")
	return nil
}

// ApplyRotation is the reduced override set the background rotation worker
// pushes onto a live handle: user agent, viewport, timezone and locale.
func ApplyRotation(id identity.Identity, logger *zap.Logger) chromedp.Action {
	l := logger.Named("stealth")
	return chromedp.Tasks{
		setUserAgentOverride(id, l),
		setDeviceMetrics(id, l),
		setEnvironmentOverrides(id, l),
	}
}

// registerEvasionScript registers the catalog to run before any page script
// on every new document.
func registerEvasionScript(id identity.Identity, advanced bool, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script, err := scriptFor(id, advanced)
		if err != nil {
			return err
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			logger.Error("Failed to register evasion script with CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to add script on new document: %w", err)
		}
		return nil
	})
}

// setUserAgentOverride configures the user agent, platform and accept
// language at the network layer.
func setUserAgentOverride(id identity.Identity, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		override := emulation.SetUserAgentOverride(id.UserAgent).
			WithPlatform(id.Platform).
			WithAcceptLanguage(id.AcceptLanguage)
		if err := override.Do(ctx); err != nil {
			logger.Error("Failed to set user agent override via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set user agent override: %w", err)
		}
		return nil
	})
}

// setExtraHTTPHeaders installs the identity's correlated header template. The
// User-Agent entry is skipped here since the emulation override owns it.
func setExtraHTTPHeaders(id identity.Identity, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(id.Headers) == 0 {
			return nil
		}
		headers := make(network.Headers, len(id.Headers))
		for k, v := range id.Headers {
			if strings.EqualFold(k, "User-Agent") {
				continue
			}
			headers[k] = v
		}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			logger.Error("Failed to set extra HTTP headers via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set extra http headers: %w", err)
		}
		return nil
	})
}

// setDeviceMetrics configures the viewport and resolution.
func setDeviceMetrics(id identity.Identity, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if id.Viewport.Width <= 0 || id.Viewport.Height <= 0 {
			return nil
		}
		orientation := emulation.OrientationTypeLandscapePrimary
		if id.Viewport.Height > id.Viewport.Width {
			orientation = emulation.OrientationTypePortraitPrimary
		}
		err := emulation.SetDeviceMetricsOverride(int64(id.Viewport.Width), int64(id.Viewport.Height), 1.0, false).
			WithScreenOrientation(&emulation.ScreenOrientation{
				Type:  orientation,
				Angle: 0,
			}).Do(ctx)
		if err != nil {
			logger.Error("Failed to set device metrics override via CDP", zap.Error(err))
			return fmt.Errorf("stealth: failed to set device metrics: %w", err)
		}
		return nil
	})
}

// setEnvironmentOverrides keeps timezone and locale consistent with the
// identity.
func setEnvironmentOverrides(id identity.Identity, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if id.Timezone != "" {
			if err := emulation.SetTimezoneOverride(id.Timezone).Do(ctx); err != nil {
				logger.Error("Failed to set timezone override via CDP", zap.Error(err))
				return fmt.Errorf("stealth: failed to set timezone: %w", err)
			}
		}
		if id.Locale != "" {
			normalized := strings.ReplaceAll(id.Locale, "_", "-")
			if err := emulation.SetLocaleOverride().WithLocale(normalized).Do(ctx); err != nil {
				logger.Error("Failed to set locale override via CDP", zap.Error(err))
				return fmt.Errorf("stealth: failed to set locale: %w", err)
			}
		}
		return nil
	})
}
