package checksum

import (
	"testing"

	"newsflash-bot/internal/news"
)

func TestItemHash(t *testing.T) {
	gen := NewGenerator()

	item := news.Item{Title: "כותרת", Link: "https://example.co.il/news/1", PublishedAt: "10:00"}

	hash1 := gen.ItemHash(item)
	hash2 := gen.ItemHash(item)

	if hash1 != hash2 {
		t.Errorf("Hash not deterministic: %s != %s", hash1, hash2)
	}
	if len(hash1) != 64 {
		t.Errorf("Hash wrong length: %d, expected 64", len(hash1))
	}

	item.Title = "כותרת אחרת"
	if gen.ItemHash(item) == hash1 {
		t.Errorf("Hash should change when title changes")
	}
}

func TestResultHash(t *testing.T) {
	gen := NewGenerator()

	a := news.CategoryResult{
		"sport5": {Items: []news.Item{{Title: "A", Link: "https://a/1", PublishedAt: "1"}}},
		"one":    {Items: []news.Item{}, Error: "fetch: timeout"},
	}
	b := news.CategoryResult{
		"one":    {Items: []news.Item{}, Error: "fetch: timeout"},
		"sport5": {Items: []news.Item{{Title: "A", Link: "https://a/1", PublishedAt: "1"}}},
	}
	if gen.ResultHash(a) != gen.ResultHash(b) {
		t.Errorf("ResultHash depends on map order")
	}

	b["one"] = news.SourceResult{Items: []news.Item{}, Error: "extract: not found"}
	if gen.ResultHash(a) == gen.ResultHash(b) {
		t.Errorf("ResultHash should change when an error changes")
	}
}

func TestMatchesETag(t *testing.T) {
	gen := NewGenerator()
	etag := gen.ETag(gen.ResultHash(news.CategoryResult{}))

	tests := []struct {
		header string
		want   bool
	}{
		{etag, true},
		{`"other", ` + etag, true},
		{"W/" + etag, true},
		{"*", true},
		{`"other"`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := gen.MatchesETag(tt.header, etag); got != tt.want {
			t.Errorf("MatchesETag(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
