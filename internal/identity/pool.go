package identity

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Catalog of desktop user agents across browser families and operating
// systems. Mobile agents are deliberately excluded; the viewport pool below
// is desktop-shaped and a mismatch there is itself a detection signal.
var userAgents = []string{
	// Chrome on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	// Chrome on macOS
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	// Chrome on Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	// Firefox on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:119.0) Gecko/20100101 Firefox/119.0",
	// Firefox on macOS
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0",
	// Safari on macOS
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	// Edge on Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

var viewports = []Viewport{
	{1920, 1080},
	{1366, 768},
	{1440, 900},
	{1536, 864},
	{1280, 720},
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,es;q=0.7",
	"en-CA,en;q=0.9",
	"en-AU,en;q=0.9",
}

var timezones = []string{
	"America/New_York",
	"Europe/London",
	"Asia/Tokyo",
	"Australia/Sydney",
	"America/Los_Angeles",
}

var deviceMemories = []int{4, 8}
var hardwareConcurrencies = []int{4, 8, 12}

// Pool draws Identity bundles. The zero value is not usable; construct with
// NewPool. Draws share one RNG, guarded by a mutex since the pool is read by
// both the foreground caller and the rotation worker.
type Pool struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPool returns a pool seeded from the clock.
func NewPool() *Pool {
	return NewPoolWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewPoolWithRand returns a pool using the supplied RNG. Tests inject a
// seeded source here.
func NewPoolWithRand(rng *rand.Rand) *Pool {
	return &Pool{rng: rng}
}

// Pick returns a uniformly random, internally consistent Identity. Repeated
// identical draws are allowed.
func (p *Pool) Pick() Identity {
	p.mu.Lock()
	defer p.mu.Unlock()

	ua := userAgents[p.rng.Intn(len(userAgents))]
	fam := FamilyOf(ua)
	vp := viewports[p.rng.Intn(len(viewports))]
	lang := acceptLanguages[p.rng.Intn(len(acceptLanguages))]

	id := Identity{
		UserAgent:           ua,
		Family:              fam,
		Platform:            platformOf(ua),
		Viewport:            vp,
		AcceptLanguage:      lang,
		Locale:              localeOf(lang),
		Timezone:            timezones[p.rng.Intn(len(timezones))],
		ColorDepth:          24,
		DeviceMemory:        deviceMemories[p.rng.Intn(len(deviceMemories))],
		HardwareConcurrency: hardwareConcurrencies[p.rng.Intn(len(hardwareConcurrencies))],
	}
	id.Headers = p.headersFor(id)
	return id
}

// localeOf takes the primary tag of an Accept-Language value.
func localeOf(acceptLanguage string) string {
	for i := 0; i < len(acceptLanguage); i++ {
		if acceptLanguage[i] == ',' || acceptLanguage[i] == ';' {
			return acceptLanguage[:i]
		}
	}
	return acceptLanguage
}

// headersFor builds the header template correlated with the identity's
// browser family. Caller holds p.mu.
func (p *Pool) headersFor(id Identity) map[string]string {
	h := map[string]string{
		"User-Agent":                id.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           id.AcceptLanguage,
		"Accept-Encoding":           "gzip, deflate, br",
		"DNT":                       strconv.Itoa(p.rng.Intn(2)),
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}

	switch id.Family {
	case FamilyChrome, FamilyEdge:
		h["sec-ch-ua"] = chromeBrandList(id)
		h["sec-ch-ua-mobile"] = "?0"
		h["sec-ch-ua-platform"] = `"` + chPlatform(id.Platform) + `"`
		h["Sec-Fetch-Dest"] = "document"
		h["Sec-Fetch-Mode"] = "navigate"
		h["Sec-Fetch-Site"] = "none"
		h["Sec-Fetch-User"] = "?1"
	case FamilyFirefox:
		h["Cache-Control"] = "max-age=0"
	}

	// Roughly 70% of real traffic carries a viewport hint.
	if p.rng.Float64() < 0.7 {
		h["Viewport-Width"] = strconv.Itoa(id.Viewport.Width)
	}
	return h
}

func chromeBrandList(id Identity) string {
	major := chromeMajor(id.UserAgent)
	if id.Family == FamilyEdge {
		return fmt.Sprintf(`"Microsoft Edge";v="%s", "Chromium";v="%s", "Not?A_Brand";v="24"`, major, major)
	}
	return fmt.Sprintf(`"Google Chrome";v="%s", "Chromium";v="%s", "Not?A_Brand";v="24"`, major, major)
}

// chromeMajor pulls the major version out of the Chrome/NNN token.
func chromeMajor(ua string) string {
	const tok = "Chrome/"
	i := strings.Index(ua, tok)
	if i < 0 {
		return "120"
	}
	rest := ua[i+len(tok):]
	if dot := strings.IndexByte(rest, '.'); dot >= 0 {
		return rest[:dot]
	}
	return rest
}

func chPlatform(platform string) string {
	switch platform {
	case "Win32":
		return "Windows"
	case "MacIntel":
		return "macOS"
	default:
		return "Linux"
	}
}
