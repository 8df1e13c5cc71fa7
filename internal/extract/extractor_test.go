package extract

import (
	"errors"
	"strings"
	"testing"

	"newsflash-bot/internal/registry"
)

const sport5HTML = `
<html><body>
<nav class="posts-list posts-list-articles"><ul>
  <li><a class="item" href="/articles/1"><h2 class="post-title">מכבי ניצחה</h2></a><em class="time">10:15</em></li>
  <li><a class="item" href="https://m.sport5.co.il/articles/2"><h2 class="post-title">הפועל הפסידה</h2></a></li>
  <li><span>no link or title</span></li>
</ul></nav>
</body></html>`

func TestCSSExtraction(t *testing.T) {
	rule := registry.Rule{CSS: &registry.CSSRule{
		Container:      "nav.posts-list.posts-list-articles ul li",
		TitleSelectors: []string{"h2.post-title"},
		LinkSelectors:  []string{"a.item", "a"},
		TimeSelectors:  []string{"em.time"},
	}}

	cands, err := New().Extract([]byte(sport5HTML), rule)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}

	want := Candidate{Title: "מכבי ניצחה", Link: "/articles/1", Published: "10:15"}
	if cands[0] != want {
		t.Errorf("cands[0] = %+v, want %+v", cands[0], want)
	}
	if cands[1].Published != "" {
		t.Errorf("cands[1].Published = %q, want empty", cands[1].Published)
	}
	if cands[2].Title != "" || cands[2].Link != "" {
		t.Errorf("cands[2] = %+v, want empty title and link", cands[2])
	}
}

func TestCSSFallbackContainer(t *testing.T) {
	html := `<div class="top-section-newsflash">
		<a href="/item/1">מבזקים</a>
		<a href="/item/2">12:30הכותרת הראשונה</a>
		<a href="/item/3">09:05 - הכותרת השנייה</a>
	</div>`
	rule := registry.Rule{CSS: &registry.CSSRule{
		Container:         "div.top-section-newsflash.no-mobile a",
		FallbackContainer: "div.top-section-newsflash a",
		SkipTitles:        []string{"מבזקי חדשות", "מבזקים"},
		ClockPrefix:       true,
	}}

	cands, err := New().Extract([]byte(html), rule)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2 (header skipped)", len(cands))
	}

	tests := []Candidate{
		{Title: "הכותרת הראשונה", Link: "/item/2", Published: "12:30"},
		{Title: "הכותרת השנייה", Link: "/item/3", Published: "09:05"},
	}
	for i, want := range tests {
		if cands[i] != want {
			t.Errorf("cands[%d] = %+v, want %+v", i, cands[i], want)
		}
	}
}

func TestCSSNoMatchIsPathNotFound(t *testing.T) {
	rule := registry.Rule{CSS: &registry.CSSRule{
		Container:         "div.gone",
		FallbackContainer: "div.also-gone",
	}}

	_, err := New().Extract([]byte(`<html><body><p>redesigned</p></body></html>`), rule)
	var pnf *PathNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("error = %v, want *PathNotFoundError", err)
	}
	if pnf.Key != "div.gone" {
		t.Errorf("Key = %q, want div.gone", pnf.Key)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error %q should mention not found", err)
	}
}

func TestCSSLinkAncestorAndTimeIndex(t *testing.T) {
	html := `
	<div class="hot-news-container">
	  <a class="image-wrapper" href="/news/a"><article class="article-card">
	    <h3 class="article-card-title">כותרת א</h3>
	    <time class="entry-date">01.05.24</time>
	  </article></a>
	</div>
	<ul class="grid-ordering mainItem6">
	  <li><p><strong><a href="/mako/1">מבזק</a></strong></p><small><span>חדשות</span><span>11:20</span></small></li>
	  <li><p><strong><a href="/mako/2">מבזק שני</a></strong></p><small><span>חדשות</span></small></li>
	</ul>`

	sport1 := registry.Rule{CSS: &registry.CSSRule{
		Container:      "div.hot-news-container article.article-card",
		TitleSelectors: []string{"h3.article-card-title"},
		LinkAncestor:   "a.image-wrapper",
		TimeSelectors:  []string{"time.entry-date"},
	}}
	cands, err := New().Extract([]byte(html), sport1)
	if err != nil {
		t.Fatalf("Extract(sport1) error: %v", err)
	}
	if len(cands) != 1 || cands[0].Link != "/news/a" || cands[0].Published != "01.05.24" {
		t.Errorf("sport1 candidates = %+v", cands)
	}

	mako := registry.Rule{CSS: &registry.CSSRule{
		Container:      "ul.grid-ordering.mainItem6 > li",
		TitleSelectors: []string{"p strong a"},
		LinkSelectors:  []string{"p strong a"},
		TimeSelectors:  []string{"small span"},
		TimeIndex:      1,
	}}
	cands, err = New().Extract([]byte(html), mako)
	if err != nil {
		t.Fatalf("Extract(mako) error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("mako got %d candidates, want 2", len(cands))
	}
	if cands[0].Published != "11:20" {
		t.Errorf("mako[0].Published = %q, want 11:20", cands[0].Published)
	}
	if cands[1].Published != "" {
		t.Errorf("mako[1].Published = %q, want empty when second span missing", cands[1].Published)
	}
}

func TestCSSContainerIsAnchor(t *testing.T) {
	html := `<a class="mobile-hp-article-plain" href="/Article/1.html"><h1>שער</h1></a>`
	rule := registry.Rule{CSS: &registry.CSSRule{
		Container:      "a.mobile-hp-article-plain",
		TitleSelectors: []string{"h1"},
	}}
	cands, err := New().Extract([]byte(html), rule)
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 || cands[0].Link != "/Article/1.html" || cands[0].Title != "שער" {
		t.Errorf("candidates = %+v", cands)
	}
}

const reshet13JSON = `{
  "pageProps": {
    "page": {
      "Content": {
        "PageGrid": [
          {"newsFlashArr": [
            {"text": "מבזק ראשון", "link": "/news/flash/1", "time": "2024-05-01T10:30:00"},
            {"text": "מבזק שני", "link": "https://13tv.co.il/news/flash/2", "time": "not a time"},
            "garbage"
          ]}
        ]
      }
    }
  }
}`

func jsonRule() registry.Rule {
	return registry.Rule{JSON: &registry.JSONRule{
		ItemsPath:     "pageProps.page.Content.PageGrid[0].newsFlashArr",
		FallbackPaths: []string{"pageProps.newsFlashArr"},
		TitleKeys:     []string{"text", "title"},
		LinkKeys:      []string{"link"},
		TimeKeys:      []string{"time"},
		TimeLayouts:   []string{"2006-01-02T15:04:05"},
		TimeFormat:    "06/01/02 15:04",
	}}
}

func TestJSONExtraction(t *testing.T) {
	cands, err := New().Extract([]byte(reshet13JSON), jsonRule())

	var partial *PartialError
	if !errors.As(err, &partial) || partial.Skipped != 1 {
		t.Fatalf("error = %v, want *PartialError with 1 skipped", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].Published != "24/05/01 10:30" {
		t.Errorf("Published = %q, want 24/05/01 10:30", cands[0].Published)
	}
	if cands[1].Published != "not a time" {
		t.Errorf("unparseable time should be kept, got %q", cands[1].Published)
	}
}

func TestJSONMissingKeyNamesKey(t *testing.T) {
	body := `{"pageProps": {"page": {"Layout": {}}}}`

	_, err := New().Extract([]byte(body), jsonRule())
	var pnf *PathNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("error = %v, want *PathNotFoundError", err)
	}
	if pnf.Key != "Content" {
		t.Errorf("Key = %q, want Content", pnf.Key)
	}
	if !strings.Contains(err.Error(), `"Content"`) {
		t.Errorf("error %q should name the missing key", err)
	}
}

func TestJSONIndexOutOfRange(t *testing.T) {
	body := `{"pageProps": {"page": {"Content": {"PageGrid": []}}}}`

	_, err := New().Extract([]byte(body), jsonRule())
	var pnf *PathNotFoundError
	if !errors.As(err, &pnf) || pnf.Key != "PageGrid[0]" {
		t.Fatalf("error = %v, want missing PageGrid[0]", err)
	}
}

func TestJSONFallbackPath(t *testing.T) {
	body := `{"pageProps": {"page": {"Content": {"PageGrid": [{"newsFlashArr": []}]}},
		"newsFlashArr": [{"text": "from fallback", "link": "/x"}]}}`

	cands, err := New().Extract([]byte(body), jsonRule())
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(cands) != 1 || cands[0].Title != "from fallback" {
		t.Errorf("candidates = %+v, want the fallback item", cands)
	}
}

func TestJSONRootArrayAndKeyFallbacks(t *testing.T) {
	rule := registry.Rule{JSON: &registry.JSONRule{
		ItemsPath:     "Items",
		FallbackPaths: []string{""},
		TitleKeys:     []string{"title"},
		LinkKeys:      []string{"shotedLink", "link"},
		TimeKeys:      []string{"time", "itemDate"},
		TimeLayouts:   []string{"2006-01-02T15:04:05"},
		TimeFormat:    "2006-01-02 15:04",
	}}
	body := `[{"title": "a", "link": "/a", "itemDate": "2024-05-01T08:09:10"},
		{"title": "b", "shotedLink": "https://inn.to/b", "link": "/b", "time": "07:00"}]`

	cands, err := New().Extract([]byte(body), rule)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	want := []Candidate{
		{Title: "a", Link: "/a", Published: "2024-05-01 08:09"},
		{Title: "b", Link: "https://inn.to/b", Published: "07:00"},
	}
	for i := range want {
		if cands[i] != want[i] {
			t.Errorf("cands[%d] = %+v, want %+v", i, cands[i], want[i])
		}
	}
}

func TestJSONMalformedBody(t *testing.T) {
	_, err := New().Extract([]byte(`<html>blocked</html>`), jsonRule())
	if err == nil || !strings.Contains(err.Error(), "decode JSON") {
		t.Errorf("error = %v, want decode failure", err)
	}
}

const channel14RSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>now14</title>
  <item><title>ידיעה ראשונה</title><link>https://www.now14.co.il/a</link><pubDate>Wed, 01 May 2024 10:00:00 +0300</pubDate></item>
  <item><title>ידיעה שנייה</title><guid>https://www.now14.co.il/?p=2</guid><dc:date>2024-06-02T09:00:00Z</dc:date></item>
</channel>
</rss>`

func TestFeedExtraction(t *testing.T) {
	rule := registry.Rule{Feed: &registry.FeedRule{HebrewMonths: true}}

	cands, err := New().Extract([]byte(channel14RSS), rule)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}
	if cands[0].Published != "1 מאי 2024" {
		t.Errorf("cands[0].Published = %q, want 1 מאי 2024", cands[0].Published)
	}
	if cands[1].Link != "https://www.now14.co.il/?p=2" {
		t.Errorf("cands[1].Link = %q, want guid fallback", cands[1].Link)
	}
	if cands[1].Published != "2 יוני 2024" {
		t.Errorf("cands[1].Published = %q, want dc:date fallback", cands[1].Published)
	}
}

func TestFeedUnwrapPre(t *testing.T) {
	escaped := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(channel14RSS)
	wrapped := "<html><body><pre>" + escaped + "</pre></body></html>"
	rule := registry.Rule{Feed: &registry.FeedRule{UnwrapPre: true}}

	cands, err := New().Extract([]byte(wrapped), rule)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(cands) != 2 || cands[0].Title != "ידיעה ראשונה" {
		t.Errorf("candidates = %+v", cands)
	}
}

func TestFeedWithoutItems(t *testing.T) {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`

	_, err := New().Extract([]byte(body), registry.Rule{Feed: &registry.FeedRule{}})
	var pnf *PathNotFoundError
	if !errors.As(err, &pnf) || pnf.Key != "item" {
		t.Errorf("error = %v, want missing item", err)
	}
}

func TestLookupPaths(t *testing.T) {
	doc := map[string]any{
		"a": []any{map[string]any{"b": []any{"x", "y"}}},
	}

	tests := []struct {
		path    string
		want    any
		missing string
	}{
		{path: "a[0].b[1]", want: "y"},
		{path: "a[0].c", missing: "c"},
		{path: "a[3]", missing: "a[3]"},
		{path: "z.b", missing: "z"},
	}

	for _, tt := range tests {
		got, err := Lookup(doc, tt.path)
		if tt.missing != "" {
			var pnf *PathNotFoundError
			if !errors.As(err, &pnf) || pnf.Key != tt.missing {
				t.Errorf("Lookup(%q) error = %v, want missing %q", tt.path, err, tt.missing)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Lookup(%q) = %v, %v; want %v", tt.path, got, err, tt.want)
		}
	}

	if _, err := Lookup(doc, "a[x]"); err == nil {
		t.Errorf("Lookup(a[x]) should reject malformed index")
	}
}
