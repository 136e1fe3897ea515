// File: internal/session/operations_test.go
package session

import (
	"bytes"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackvectorops/ytghost/internal/download"
)

func TestExportedCookieClampsSessionExpiry(t *testing.T) {
	// CDP reports session cookies with Expires -1; the jar marks them 0.
	c := exportedCookie(&network.Cookie{
		Domain:  ".youtube.com",
		Path:    "/",
		Name:    "YSC",
		Value:   "abc",
		Expires: -1,
	})

	assert.Equal(t, int64(0), c.Expires)
	assert.True(t, c.IncludeSubdomains)

	var buf bytes.Buffer
	require.NoError(t, download.WriteNetscape(&buf, []download.Cookie{c}))
	assert.Contains(t, buf.String(), ".youtube.com\tTRUE\t/\tFALSE\t0\tYSC\tabc")
	assert.NotContains(t, buf.String(), "-1")
}

func TestExportedCookieKeepsRealExpiry(t *testing.T) {
	c := exportedCookie(&network.Cookie{
		Domain:  "accounts.youtube.com",
		Path:    "/signin",
		Name:    "SID",
		Value:   "v",
		Secure:  true,
		Expires: 1767225600,
	})

	assert.Equal(t, int64(1767225600), c.Expires)
	assert.False(t, c.IncludeSubdomains)
	assert.True(t, c.Secure)
	assert.Equal(t, "/signin", c.Path)
}
