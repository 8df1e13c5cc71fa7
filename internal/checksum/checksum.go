package checksum

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"newsflash-bot/internal/news"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// ItemHash is SHA256(link|title|published_at) in hex.
func (g *Generator) ItemHash(item news.Item) string {
	content := fmt.Sprintf("%s|%s|%s", item.Link, item.Title, item.PublishedAt)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
}

// SourceHash covers the items in order plus the error string.
func (g *Generator) SourceHash(res news.SourceResult) string {
	h := sha256.New()
	for _, it := range res.Items {
		fmt.Fprintf(h, "%s\n", g.ItemHash(it))
	}
	fmt.Fprintf(h, "error=%s", res.Error)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ResultHash is independent of map iteration order.
func (g *Generator) ResultHash(result news.CategoryResult) string {
	ids := make([]string, 0, len(result))
	for id := range result {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		fmt.Fprintf(h, "%s=%s\n", id, g.SourceHash(result[id]))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ETag wraps a hash as a strong entity tag.
func (g *Generator) ETag(hash string) string {
	if len(hash) > 32 {
		hash = hash[:32]
	}
	return `"` + hash + `"`
}

// MatchesETag reports whether an If-None-Match header value names etag.
func (g *Generator) MatchesETag(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
