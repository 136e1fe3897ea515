// Package extract walks ordered fallback chains of selectors per metadata
// field against a loaded page. The first selector producing a non-empty,
// semantically valid value wins; exhausting a chain yields a documented
// default, not an error.
package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/config"
)

// Strategy names how a selector value is resolved against the page.
type Strategy int

const (
	// LiveText reads the text content of the first match over CDP.
	LiveText Strategy = iota
	// SnapshotAttr reads an attribute from a captured DOM snapshot. Used
	// for meta-tag fallbacks, which CDP text queries cannot see.
	SnapshotAttr
	// PageTitle reads the document title.
	PageTitle
)

// Selector is one entry in a fallback chain.
type Selector struct {
	Strategy Strategy
	Value    string
	// Attr names the attribute for SnapshotAttr.
	Attr string
	// Post cleans a raw value; returning "" rejects it and the chain
	// continues. Nil means trim whitespace only.
	Post func(string) string
}

// Page is the read surface the pipeline extracts from. The session
// controller implements it over the live browser; tests implement it over
// fixtures.
type Page interface {
	// Text returns the trimmed text of the first element matching the CSS
	// selector, or an error when nothing matches within the wait budget.
	Text(ctx context.Context, selector string) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
	// OuterHTML returns a snapshot of the current document.
	OuterHTML(ctx context.Context) (string, error)
}

// Pipeline evaluates the field chains.
type Pipeline struct {
	cfg    config.ExtractorConfig
	logger *zap.Logger

	titleChain    []Selector
	channelChain  []Selector
	durationChain []Selector
	viewChain     []Selector
}

// NewPipeline builds the pipeline with the fixed field chains.
func NewPipeline(cfg config.ExtractorConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: logger.Named("extract"),
		titleChain: []Selector{
			{Strategy: LiveText, Value: "h1.ytd-watch-metadata yt-formatted-string"},
			{Strategy: LiveText, Value: "h1.ytd-video-primary-info-renderer"},
			{Strategy: LiveText, Value: "h1.style-scope.ytd-video-primary-info-renderer"},
			{Strategy: LiveText, Value: "h1[class*='title']"},
			{Strategy: LiveText, Value: ".ytd-video-primary-info-renderer h1"},
			{Strategy: LiveText, Value: "#container h1"},
			{Strategy: SnapshotAttr, Value: "meta[property='og:title']", Attr: "content"},
			{Strategy: PageTitle, Post: stripTitleSuffix},
		},
		channelChain: []Selector{
			{Strategy: LiveText, Value: "#channel-name a"},
			{Strategy: LiveText, Value: ".ytd-channel-name a"},
			{Strategy: LiveText, Value: "#owner-text a"},
			{Strategy: LiveText, Value: ".ytd-video-owner-renderer a"},
			{Strategy: LiveText, Value: "[class*='channel'] a"},
		},
		durationChain: []Selector{
			{Strategy: LiveText, Value: ".ytp-time-duration"},
			{Strategy: LiveText, Value: ".ytd-thumbnail-overlay-time-status-renderer"},
			{Strategy: LiveText, Value: "[class*='duration']"},
			{Strategy: LiveText, Value: ".badge-style-type-simple"},
		},
		viewChain: []Selector{
			{Strategy: LiveText, Value: "#info #count .view-count"},
			{Strategy: LiveText, Value: ".ytd-video-view-count-renderer"},
			{Strategy: LiveText, Value: "[class*='view-count']"},
			{Strategy: LiveText, Value: "#count .style-scope"},
		},
	}
}

// Extract runs every field chain against the page and assembles the Result.
// It never returns an error; fields whose chains are exhausted take their
// documented defaults.
func (p *Pipeline) Extract(ctx context.Context, page Page, videoID, sourceURL string) Result {
	res := Result{
		ID:        videoID,
		Title:     DefaultTitle,
		Channel:   DefaultChannel,
		Thumbnail: ThumbnailURL(videoID),
		URL:       sourceURL,
	}

	// The snapshot is fetched lazily, once, and shared between fields.
	var snapshot *goquery.Document
	snapshotFor := func() *goquery.Document {
		if snapshot != nil {
			return snapshot
		}
		html, err := page.OuterHTML(ctx)
		if err != nil {
			p.logger.Debug("DOM snapshot unavailable", zap.Error(err))
			return nil
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			p.logger.Debug("DOM snapshot parse failed", zap.Error(err))
			return nil
		}
		snapshot = doc
		return snapshot
	}

	if v := p.walk(ctx, page, p.titleChain, "title", snapshotFor); v != "" {
		res.Title = v
	}
	if v := p.walk(ctx, page, p.channelChain, "channel", snapshotFor); v != "" {
		res.Channel = v
	}
	if v := p.walk(ctx, page, p.durationChain, "duration", snapshotFor); v != "" {
		res.Duration = &v
	}
	if v := p.walk(ctx, page, p.viewChain, "view_count", snapshotFor); v != "" {
		if count, ok := ParseViewCount(v); ok {
			res.ViewCount = &count
		}
	}
	return res
}

// walk tries a chain in declared order and returns the first value that
// survives post-processing, or "" when the chain is exhausted.
func (p *Pipeline) walk(ctx context.Context, page Page, chain []Selector, field string, snapshotFor func() *goquery.Document) string {
	for _, sel := range chain {
		if ctx.Err() != nil {
			return ""
		}
		raw, err := p.resolve(ctx, page, sel, snapshotFor)
		if err != nil {
			p.logger.Debug("Selector miss",
				zap.String("field", field),
				zap.String("selector", sel.Value),
				zap.Error(err))
			continue
		}
		value := strings.TrimSpace(raw)
		if sel.Post != nil {
			value = sel.Post(value)
		}
		if value == "" {
			continue
		}
		// View counts additionally require a parsable numeric token; a
		// value that fails the parse is discarded and the chain continues.
		if field == "view_count" {
			if _, ok := ParseViewCount(value); !ok {
				continue
			}
		}
		return value
	}
	return ""
}

func (p *Pipeline) resolve(ctx context.Context, page Page, sel Selector, snapshotFor func() *goquery.Document) (string, error) {
	switch sel.Strategy {
	case SnapshotAttr:
		doc := snapshotFor()
		if doc == nil {
			return "", errNoMatch
		}
		value, ok := doc.Find(sel.Value).First().Attr(sel.Attr)
		if !ok {
			return "", errNoMatch
		}
		return value, nil
	case PageTitle:
		return page.Title(ctx)
	default:
		selCtx := ctx
		if p.cfg.SelectorTimeout > 0 {
			var cancel context.CancelFunc
			selCtx, cancel = context.WithTimeout(ctx, p.cfg.SelectorTimeout)
			defer cancel()
		}
		return page.Text(selCtx, sel.Value)
	}
}

var errNoMatch = &noMatchError{}

type noMatchError struct{}

func (*noMatchError) Error() string { return "no element matched" }

// stripTitleSuffix cleans the document-title fallback.
func stripTitleSuffix(title string) string {
	return strings.TrimSpace(strings.TrimSuffix(title, " - YouTube"))
}
