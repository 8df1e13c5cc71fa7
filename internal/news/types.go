package news

import "fmt"

// Placeholders rendered instead of missing fields.
const (
	NoTitle = "(no title)"
	NoTime  = "(no time)"
	NoLink  = "#"
)

type Category string

const (
	General Category = "general"
	Sports  Category = "sports"
	Tech    Category = "tech"
	TV      Category = "tv"
)

// Categories in display order.
var Categories = []Category{General, Sports, Tech, TV}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Item is one headline as delivered to callers. Items are built fresh on every
// request and never stored.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PublishedAt string `json:"published_at"`
}

// SourceResult holds what one source produced for a request. Items and Error
// may both be set (partial extraction) or both be empty (no news right now).
type SourceResult struct {
	Items []Item `json:"items"`
	Error string `json:"error,omitempty"`
}

// CategoryResult maps source id to its result.
type CategoryResult map[string]SourceResult
