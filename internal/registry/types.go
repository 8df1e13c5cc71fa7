package registry

import (
	"time"

	"newsflash-bot/internal/news"
)

type Strategy string

const (
	PlainHTTP       Strategy = "plain-http"
	HeadlessBrowser Strategy = "headless-browser"
	HTTPViaRelay    Strategy = "http-via-relay"
	ApifyActor      Strategy = "apify-actor"
)

var strategies = []Strategy{PlainHTTP, HeadlessBrowser, HTTPViaRelay, ApifyActor}

// Descriptor is one registered source.
type Descriptor struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Category      news.Category     `yaml:"category"`
	Strategy      Strategy          `yaml:"strategy"`
	URL           string            `yaml:"url"`
	AlternateURLs []string          `yaml:"alternate_urls"`
	BaseURL       string            `yaml:"base_url"`
	MaxItems      int               `yaml:"max_items"`
	Headers       map[string]string `yaml:"headers"`
	TimeoutS      int               `yaml:"timeout_s"`
	Wait          *Wait             `yaml:"wait"`
	Rule          Rule              `yaml:"rule"`
}

// URLs returns the primary URL followed by the alternates.
func (d Descriptor) URLs() []string {
	return append([]string{d.URL}, d.AlternateURLs...)
}

func (d Descriptor) Timeout() time.Duration {
	return time.Duration(d.TimeoutS) * time.Second
}

func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Wait describes when a headless page counts as rendered. Selector waits for
// an element to appear, Gone for one to disappear (bot challenge frames).
type Wait struct {
	Selector string `yaml:"selector"`
	Gone     string `yaml:"gone"`
	DelayMS  int    `yaml:"delay_ms"`
	TimeoutS int    `yaml:"timeout_s"`
}

func (w *Wait) Delay() time.Duration {
	return time.Duration(w.DelayMS) * time.Millisecond
}

func (w *Wait) Timeout() time.Duration {
	return time.Duration(w.TimeoutS) * time.Second
}

// Rule is a tagged variant: exactly one of CSS, JSON, Feed is set.
type Rule struct {
	CSS  *CSSRule  `yaml:"css,omitempty"`
	JSON *JSONRule `yaml:"json,omitempty"`
	Feed *FeedRule `yaml:"feed,omitempty"`
}

func (r Rule) Kind() string {
	switch {
	case r.CSS != nil:
		return "css"
	case r.JSON != nil:
		return "json"
	case r.Feed != nil:
		return "feed"
	}
	return ""
}

// CSSRule walks containers and reads title, link and time relative to each.
// Every selector list is tried in order until one yields a value.
type CSSRule struct {
	Container         string   `yaml:"container"`
	FallbackContainer string   `yaml:"fallback_container"`
	TitleSelectors    []string `yaml:"title_selectors"`
	LinkSelectors     []string `yaml:"link_selectors"`
	LinkAncestor      string   `yaml:"link_ancestor"`
	TimeSelectors     []string `yaml:"time_selectors"`
	TimeIndex         int      `yaml:"time_index"`
	SkipTitles        []string `yaml:"skip_titles"`
	ClockPrefix       bool     `yaml:"clock_prefix"`
}

// JSONRule locates the item array by a dotted path such as
// "pageProps.page.Content.PageGrid[0].newsFlashArr". An empty path is the root.
type JSONRule struct {
	ItemsPath     string   `yaml:"items_path"`
	FallbackPaths []string `yaml:"fallback_paths"`
	TitleKeys     []string `yaml:"title_keys"`
	LinkKeys      []string `yaml:"link_keys"`
	TimeKeys      []string `yaml:"time_keys"`
	TimeLayouts   []string `yaml:"time_layouts"`
	TimeFormat    string   `yaml:"time_format"`
}

type FeedRule struct {
	UnwrapPre    bool `yaml:"unwrap_pre"`
	HebrewMonths bool `yaml:"hebrew_months"`
}
