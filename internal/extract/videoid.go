package extract

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidResource marks a URL from which no video identifier could be
// extracted.
var ErrInvalidResource = errors.New("invalid video URL")

// Ordered identifier patterns; the first match wins. Identifiers are always
// eleven characters of the URL-safe base64 alphabet.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
}

// VideoID extracts the canonical video identifier from a URL. A URL matching
// none of the known shapes yields ErrInvalidResource.
func VideoID(url string) (string, error) {
	if url == "" {
		return "", ErrInvalidResource
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidResource, url)
}

// WatchURL renders the canonical watch page for an identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailURL derives the thumbnail deterministically from the identifier;
// no extraction is needed for it.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}
