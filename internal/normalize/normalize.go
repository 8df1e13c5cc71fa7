package normalize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/extract"
	"newsflash-bot/internal/news"
	"newsflash-bot/internal/registry"
)

var (
	spacesRe = regexp.MustCompile(`\s+`)
	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// Normalizer turns extracted candidates into news items. It does no I/O and
// running it twice over its own output changes nothing.
type Normalizer struct {
	cfg config.NormalizeConfig
}

func NewNormalizer(cfg config.NormalizeConfig) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// NormalizeAll keeps at most d.MaxItems candidates and normalizes them in order.
func (n *Normalizer) NormalizeAll(cands []extract.Candidate, d registry.Descriptor) []news.Item {
	if d.MaxItems > 0 && len(cands) > d.MaxItems {
		cands = cands[:d.MaxItems]
	}
	items := make([]news.Item, 0, len(cands))
	for _, c := range cands {
		items = append(items, n.Normalize(c, d.BaseURL))
	}
	return items
}

func (n *Normalizer) Normalize(c extract.Candidate, baseURL string) news.Item {
	title := n.TruncateTitle(n.cleanText(c.Title))
	if title == "" {
		title = news.NoTitle
	}

	published := n.cleanText(c.Published)
	if published == "" {
		published = news.NoTime
	}

	return news.Item{
		Title:       title,
		Link:        ResolveLink(c.Link, baseURL),
		PublishedAt: published,
	}
}

func (n *Normalizer) cleanText(text string) string {
	if n.cfg.TrimNBSP {
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}
	if n.cfg.CollapseSpaces {
		text = spacesRe.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

// TruncateTitle cuts titles longer than max_title_runes at the last space and
// appends an ellipsis. The result never exceeds the limit.
func (n *Normalizer) TruncateTitle(title string) string {
	limit := n.cfg.MaxTitleRunes
	if limit <= 0 || utf8.RuneCountInString(title) <= limit {
		return title
	}

	runes := []rune(title)
	truncated := string(runes[:limit-1])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "…"
}

// ResolveLink makes link absolute against baseURL. Absolute http(s) links are
// kept; any other scheme, like an empty link, becomes the placeholder.
func ResolveLink(link, baseURL string) string {
	link = strings.TrimSpace(link)
	if link == "" || link == news.NoLink {
		return news.NoLink
	}
	if scheme := schemeRe.FindString(link); scheme != "" {
		switch strings.ToLower(scheme) {
		case "http:", "https:":
			if strings.HasPrefix(link[len(scheme):], "//") {
				return link
			}
		}
		// javascript:, mailto: and the like are not headlines
		return news.NoLink
	}

	base, err := url.Parse(baseURL)
	if err == nil {
		if ref, err := url.Parse(link); err == nil {
			return base.ResolveReference(ref).String()
		}
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(link, "/")
}
