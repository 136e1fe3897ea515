// Package identity produces randomized but internally consistent browser
// identities: user agent, correlated header set, viewport, locale, timezone
// and hardware readouts. An Identity is immutable once issued; rotation
// replaces it wholesale.
package identity

import (
	"fmt"
	"strings"
)

// Family identifies the browser lineage a user agent claims. Header templates
// must stay consistent with it: only Chromium-derived agents send client
// hints.
type Family string

const (
	FamilyChrome  Family = "chrome"
	FamilyFirefox Family = "firefox"
	FamilySafari  Family = "safari"
	FamilyEdge    Family = "edge"
)

// Viewport is a window resolution in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// Identity is the full bundle of client-presented attributes a session shows
// to the target. Fields are fixed at draw time.
type Identity struct {
	UserAgent           string
	Family              Family
	Platform            string // navigator.platform value, e.g. "Win32"
	Headers             map[string]string
	Viewport            Viewport
	Locale              string
	AcceptLanguage      string
	Timezone            string
	ColorDepth          int
	DeviceMemory        int
	HardwareConcurrency int
}

// FamilyOf classifies a user agent string. Edge carries the Chrome token, so
// it is checked first; Safari matches only when Chrome is absent.
func FamilyOf(userAgent string) Family {
	switch {
	case strings.Contains(userAgent, "Edg/"):
		return FamilyEdge
	case strings.Contains(userAgent, "Firefox/"):
		return FamilyFirefox
	case strings.Contains(userAgent, "Chrome/"):
		return FamilyChrome
	default:
		return FamilySafari
	}
}

// platformOf derives the navigator.platform value the OS token implies.
func platformOf(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Win32"
	case strings.Contains(userAgent, "Mac OS X"):
		return "MacIntel"
	default:
		return "Linux x86_64"
	}
}

func (id Identity) String() string {
	return fmt.Sprintf("%s %dx%d %s %s", id.Family, id.Viewport.Width, id.Viewport.Height, id.Locale, id.Timezone)
}
