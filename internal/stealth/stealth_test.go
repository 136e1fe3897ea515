// File: internal/stealth/stealth_test.go
package stealth

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/identity"
)

func testIdentity() identity.Identity {
	return identity.Identity{
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Family:              identity.FamilyChrome,
		Platform:            "Linux x86_64",
		Viewport:            identity.Viewport{Width: 1920, Height: 1080},
		Locale:              "en-US",
		AcceptLanguage:      "en-US,en;q=0.9",
		Timezone:            "America/New_York",
		ColorDepth:          24,
		DeviceMemory:        8,
		HardwareConcurrency: 8,
	}
}

func TestScriptForEmbedsPersona(t *testing.T) {
	script, err := scriptFor(testIdentity(), true)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(script, "const YTGHOST_PERSONA = "))
	assert.Contains(t, script, EvasionsJS)

	// The persona constant must be valid JSON carrying the identity values.
	first := strings.SplitN(script, "\n", 2)[0]
	raw := strings.TrimSuffix(strings.TrimPrefix(first, "const YTGHOST_PERSONA = "), ";")
	var persona jsPersona
	require.NoError(t, json.Unmarshal([]byte(raw), &persona))
	assert.True(t, persona.Advanced)
	assert.Equal(t, []string{"en-US", "en"}, persona.Languages)
	assert.Equal(t, "America/New_York", persona.Timezone)
	assert.Equal(t, 8, persona.DeviceMemory)
	assert.Equal(t, 1920, persona.Screen.Width)
	assert.Equal(t, 1080, persona.Screen.Height)
}

func TestScriptForBasicModeDisablesNoisePatches(t *testing.T) {
	script, err := scriptFor(testIdentity(), false)
	require.NoError(t, err)
	assert.Contains(t, script, `"advanced":false`)
}

func TestLanguagesOf(t *testing.T) {
	id := testIdentity()
	assert.Equal(t, []string{"en-US", "en"}, languagesOf(id))

	id.Locale = "en"
	assert.Equal(t, []string{"en"}, languagesOf(id))
}

// The catalog must tolerate repeated evaluation: every patch carries its own
// try/catch and the timezone patch is gated on a marker.
func TestEvasionCatalogShape(t *testing.T) {
	assert.Contains(t, EvasionsJS, "webdriver")
	assert.Contains(t, EvasionsJS, "YTGHOST_PERSONA")
	assert.Contains(t, EvasionsJS, "__ytghostPatched")
	assert.Greater(t, strings.Count(EvasionsJS, "try {"), 5,
		"each patch must be individually try/catch wrapped")
}

func TestApplyBuildsActionSequence(t *testing.T) {
	// Apply only assembles actions; no browser is contacted until Run.
	assert.NotNil(t, Apply(testIdentity(), true, zap.NewNop()))
	assert.NotNil(t, ApplyRotation(testIdentity(), zap.NewNop()))
}
