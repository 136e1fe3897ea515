// File: internal/download/cookies_test.go
package download

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCookies() []Cookie {
	return []Cookie{
		{Domain: ".youtube.com", IncludeSubdomains: true, Path: "/", Secure: true, Expires: 1767225600, Name: "VISITOR_INFO1_LIVE", Value: "abc123"},
		{Domain: "www.youtube.com", IncludeSubdomains: false, Path: "/watch", Secure: false, Expires: 0, Name: "PREF", Value: "f6=40000000"},
	}
}

func TestWriteNetscapeFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNetscape(&buf, sampleCookies()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# Netscape HTTP Cookie File", lines[0])
	assert.Equal(t, ".youtube.com\tTRUE\t/\tTRUE\t1767225600\tVISITOR_INFO1_LIVE\tabc123", lines[1])
	assert.Equal(t, "www.youtube.com\tFALSE\t/watch\tFALSE\t0\tPREF\tf6=40000000", lines[2])
}

func TestWriteNetscapeDefaultsEmptyPath(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNetscape(&buf, []Cookie{{Domain: "a.example", Name: "n", Value: "v"}}))
	assert.Contains(t, buf.String(), "a.example\tFALSE\t/\tFALSE\t0\tn\tv")
}

func TestNetscapeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := sampleCookies()
	require.NoError(t, WriteNetscape(&buf, want))

	got, err := ParseNetscape(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseNetscapeRejectsMalformedLines(t *testing.T) {
	_, err := ParseNetscape(strings.NewReader("# Netscape HTTP Cookie File\nnot\ttabbed\tenough\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed cookie line")
}

func TestWriteCookieFileCleanup(t *testing.T) {
	path, cleanup, err := writeCookieFile(sampleCookies())
	require.NoError(t, err)
	require.FileExists(t, path)

	cleanup()
	assert.NoFileExists(t, path)
}
