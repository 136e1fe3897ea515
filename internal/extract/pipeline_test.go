// File: internal/extract/pipeline_test.go
package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/blackvectorops/ytghost/internal/config"
)

// fakePage serves canned selector results and a static DOM snapshot.
type fakePage struct {
	texts map[string]string
	title string
	html  string
}

func (f *fakePage) Text(_ context.Context, selector string) (string, error) {
	if v, ok := f.texts[selector]; ok {
		return v, nil
	}
	return "", errors.New("no element matched")
}

func (f *fakePage) Title(_ context.Context) (string, error) {
	if f.title == "" {
		return "", errors.New("no title")
	}
	return f.title, nil
}

func (f *fakePage) OuterHTML(_ context.Context) (string, error) {
	if f.html == "" {
		return "", errors.New("no document")
	}
	return f.html, nil
}

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return NewPipeline(config.ExtractorConfig{
		SelectorTimeout: 100 * time.Millisecond,
		RetryWait:       10 * time.Millisecond,
	}, zaptest.NewLogger(t))
}

func TestExtractPrefersLiveSelectors(t *testing.T) {
	page := &fakePage{
		texts: map[string]string{
			"h1.ytd-watch-metadata yt-formatted-string": "Never Gonna Give You Up",
			"#channel-name a":     "Rick Astley",
			".ytp-time-duration":  "3:33",
			"#info #count .view-count": "1,234,567 views",
		},
	}

	res := testPipeline(t).Extract(context.Background(), page, "dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))

	assert.Equal(t, "dQw4w9WgXcQ", res.ID)
	assert.Equal(t, "Never Gonna Give You Up", res.Title)
	assert.Equal(t, "Rick Astley", res.Channel)
	require.NotNil(t, res.Duration)
	assert.Equal(t, "3:33", *res.Duration)
	require.NotNil(t, res.ViewCount)
	assert.Equal(t, int64(1234567), *res.ViewCount)
	assert.Equal(t, ThumbnailURL("dQw4w9WgXcQ"), res.Thumbnail)
}

func TestExtractFallsBackToSnapshotAndTitle(t *testing.T) {
	page := &fakePage{
		title: "Some Video - YouTube",
		html:  `<html><head><meta property="og:title" content="Some Video"></head><body></body></html>`,
	}

	res := testPipeline(t).Extract(context.Background(), page, "abcdefghijk", WatchURL("abcdefghijk"))

	// The og:title meta outranks the trimmed document title.
	assert.Equal(t, "Some Video", res.Title)
	assert.Equal(t, DefaultChannel, res.Channel)
	assert.Nil(t, res.Duration)
	assert.Nil(t, res.ViewCount)
}

func TestExtractPageTitleSuffixStripped(t *testing.T) {
	page := &fakePage{title: "Last Resort - YouTube"}

	res := testPipeline(t).Extract(context.Background(), page, "abcdefghijk", WatchURL("abcdefghijk"))

	assert.Equal(t, "Last Resort", res.Title)
}

func TestExtractUsesDefaultsWhenEverythingMisses(t *testing.T) {
	res := testPipeline(t).Extract(context.Background(), &fakePage{}, "abcdefghijk", WatchURL("abcdefghijk"))

	assert.Equal(t, DefaultTitle, res.Title)
	assert.Equal(t, DefaultChannel, res.Channel)
	assert.Nil(t, res.Duration)
	assert.Nil(t, res.ViewCount)
	assert.Equal(t, WatchURL("abcdefghijk"), res.URL)
}

func TestExtractSkipsUnparsableViewCounts(t *testing.T) {
	page := &fakePage{
		texts: map[string]string{
			"#info #count .view-count":       "No views",
			".ytd-video-view-count-renderer": "2.5K views",
		},
	}

	res := testPipeline(t).Extract(context.Background(), page, "abcdefghijk", WatchURL("abcdefghijk"))

	require.NotNil(t, res.ViewCount)
	assert.Equal(t, int64(2500), *res.ViewCount)
}
