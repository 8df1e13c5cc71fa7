package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"newsflash-bot/internal/registry"
)

var hebrewMonths = map[time.Month]string{
	time.January:   "ינואר",
	time.February:  "פברואר",
	time.March:     "מרץ",
	time.April:     "אפריל",
	time.May:       "מאי",
	time.June:      "יוני",
	time.July:      "יולי",
	time.August:    "אוגוסט",
	time.September: "ספטמבר",
	time.October:   "אוקטובר",
	time.November:  "נובמבר",
	time.December:  "דצמבר",
}

var dcDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func extractFeed(body []byte, rule *registry.FeedRule) ([]Candidate, error) {
	content := string(body)
	if rule.UnwrapPre {
		content = unwrapPre(content)
	}

	// gofeed parsers keep per-parse state, so one per call
	feed, err := gofeed.NewParser().ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if len(feed.Items) == 0 {
		return nil, &PathNotFoundError{Path: "feed", Key: "item"}
	}

	out := make([]Candidate, 0, len(feed.Items))
	skipped := 0
	for _, item := range feed.Items {
		c := Candidate{
			Title: strings.TrimSpace(item.Title),
			Link:  strings.TrimSpace(item.Link),
		}
		if c.Link == "" {
			c.Link = strings.TrimSpace(item.GUID)
		}
		if c.Title == "" && c.Link == "" {
			skipped++
			continue
		}
		c.Published = feedDate(item, rule)
		out = append(out, c)
	}

	if skipped > 0 {
		return out, &PartialError{Skipped: skipped, Reason: "entry has neither title nor link"}
	}
	return out, nil
}

// unwrapPre returns the text of the first <pre> element, which is how the
// automation service hands back raw feed XML. Without one the input is kept.
func unwrapPre(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	pre := doc.Find("pre").First()
	if pre.Length() == 0 {
		return content
	}
	return strings.TrimSpace(pre.Text())
}

func feedDate(item *gofeed.Item, rule *registry.FeedRule) string {
	if item.PublishedParsed != nil {
		return displayDate(*item.PublishedParsed, rule)
	}
	if item.Published != "" {
		return strings.TrimSpace(item.Published)
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
		raw := strings.TrimSpace(item.DublinCoreExt.Date[0])
		for _, layout := range dcDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return displayDate(t, rule)
			}
		}
		return raw
	}
	return ""
}

func displayDate(t time.Time, rule *registry.FeedRule) string {
	if rule.HebrewMonths {
		return fmt.Sprintf("%d %s %d", t.Day(), hebrewMonths[t.Month()], t.Year())
	}
	return t.Format("02/01/2006 15:04")
}
