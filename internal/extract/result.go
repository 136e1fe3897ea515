package extract

// Result is the metadata extracted for one video. Produced fresh per call,
// never cached. Duration and ViewCount stay null when every selector in
// their chain failed.
type Result struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Channel   string  `json:"channel"`
	Duration  *string `json:"duration"`
	ViewCount *int64  `json:"view_count"`
	Thumbnail string  `json:"thumbnail"`
	URL       string  `json:"url"`
}

// Documented defaults for fields whose selector chains are exhausted.
const (
	DefaultTitle   = "Unknown Title"
	DefaultChannel = "Unknown Channel"
)
