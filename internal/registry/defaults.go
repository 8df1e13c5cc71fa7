package registry

import "newsflash-bot/internal/news"

var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Defaults returns the built-in sources. configs/sources.yaml may replace them.
func Defaults() []Descriptor {
	return []Descriptor{
		// general
		{
			ID:       "ynet",
			Name:     "Ynet",
			Category: news.General,
			Strategy: PlainHTTP,
			URL:      "https://www.ynet.co.il/news",
			BaseURL:  "https://www.ynet.co.il",
			MaxItems: 5,
			TimeoutS: 10,
			Rule: Rule{CSS: &CSSRule{
				Container:         "div.slotTitle",
				FallbackContainer: "div.slotView div.slotTitle",
				LinkSelectors:     []string{"a"},
			}},
		},
		{
			ID:       "arutz7",
			Name:     "Arutz 7",
			Category: news.General,
			Strategy: PlainHTTP,
			URL:      "https://www.inn.co.il/api/NewAPI/Cat?type=10",
			BaseURL:  "https://www.inn.co.il",
			TimeoutS: 10,
			Headers:  map[string]string{"Accept": "application/json"},
			Rule: Rule{JSON: &JSONRule{
				ItemsPath:     "Items",
				FallbackPaths: []string{""},
				TitleKeys:     []string{"title"},
				LinkKeys:      []string{"shotedLink", "link"},
				TimeKeys:      []string{"time", "itemDate"},
				TimeLayouts:   isoLayouts,
				TimeFormat:    "2006-01-02 15:04",
			}},
		},
		{
			ID:       "walla",
			Name:     "Walla",
			Category: news.General,
			Strategy: HeadlessBrowser,
			URL:      "https://news.walla.co.il/",
			BaseURL:  "https://news.walla.co.il",
			TimeoutS: 85,
			Wait:     &Wait{Selector: "div.top-section-newsflash", TimeoutS: 20},
			Rule: Rule{CSS: &CSSRule{
				Container:         "div.top-section-newsflash.no-mobile a",
				FallbackContainer: "div.top-section-newsflash a",
				SkipTitles:        []string{"מבזקי חדשות", "מבזקים"},
				ClockPrefix:       true,
			}},
		},

		// sports
		{
			ID:       "sport5",
			Name:     "Sport 5",
			Category: news.Sports,
			Strategy: PlainHTTP,
			URL:      "https://m.sport5.co.il/",
			BaseURL:  "https://m.sport5.co.il",
			TimeoutS: 10,
			Rule: Rule{CSS: &CSSRule{
				Container:      "nav.posts-list.posts-list-articles ul li",
				TitleSelectors: []string{"h2.post-title"},
				LinkSelectors:  []string{"a.item", "a"},
				TimeSelectors:  []string{"em.time"},
			}},
		},
		{
			ID:       "sport1",
			Name:     "Sport 1",
			Category: news.Sports,
			Strategy: PlainHTTP,
			URL:      "https://sport1.maariv.co.il/",
			BaseURL:  "https://sport1.maariv.co.il",
			TimeoutS: 10,
			Rule: Rule{CSS: &CSSRule{
				Container:         "div.hot-news-container article.article-card",
				FallbackContainer: "article.article-card",
				TitleSelectors:    []string{"h3.article-card-title"},
				LinkAncestor:      "a.image-wrapper",
				LinkSelectors:     []string{"a"},
				TimeSelectors:     []string{"time.entry-date", "time"},
			}},
		},
		{
			ID:       "one",
			Name:     "ONE",
			Category: news.Sports,
			Strategy: PlainHTTP,
			URL:      "https://m.one.co.il/mobile/",
			BaseURL:  "https://m.one.co.il",
			TimeoutS: 10,
			Rule: Rule{CSS: &CSSRule{
				Container:      "a.mobile-hp-article-plain",
				TitleSelectors: []string{"h1", "h2"},
			}},
		},

		// tech
		{
			ID:       "geektime",
			Name:     "Geektime",
			Category: news.Tech,
			Strategy: PlainHTTP,
			URL:      "https://www.geektime.co.il/feed/",
			BaseURL:  "https://www.geektime.co.il",
			TimeoutS: 10,
			Rule:     Rule{Feed: &FeedRule{HebrewMonths: true}},
		},
		{
			ID:       "gadgety",
			Name:     "Gadgety",
			Category: news.Tech,
			Strategy: PlainHTTP,
			URL:      "https://www.gadgety.co.il/feed/",
			BaseURL:  "https://www.gadgety.co.il",
			TimeoutS: 10,
			Rule:     Rule{Feed: &FeedRule{HebrewMonths: true}},
		},

		// tv
		{
			ID:       "keshet12",
			Name:     "Keshet 12",
			Category: news.TV,
			Strategy: HTTPViaRelay,
			URL:      "https://www.mako.co.il/news-dailynews",
			BaseURL:  "https://www.mako.co.il",
			TimeoutS: 15,
			Rule: Rule{CSS: &CSSRule{
				Container:      "ul.grid-ordering.mainItem6 > li",
				TitleSelectors: []string{"p strong a"},
				LinkSelectors:  []string{"p strong a"},
				TimeSelectors:  []string{"small span"},
				TimeIndex:      1,
			}},
		},
		{
			ID:       "reshet13",
			Name:     "Reshet 13",
			Category: news.TV,
			Strategy: PlainHTTP,
			URL:      "https://13tv.co.il/_next/data/ObWGmDraUyjZLnpGtZra0/he/news/news-flash.json?all=news&all=news-flash",
			AlternateURLs: []string{
				"https://13tv.co.il/_next/data/ObWGmDraUyjZLnpGtZra0/he/news/news-flash.json",
			},
			BaseURL:  "https://13tv.co.il",
			TimeoutS: 15,
			Headers:  map[string]string{"Accept": "application/json"},
			Rule: Rule{JSON: &JSONRule{
				ItemsPath:     "pageProps.page.Content.PageGrid[0].newsFlashArr",
				FallbackPaths: []string{"pageProps.newsFlashArr"},
				TitleKeys:     []string{"text", "title"},
				LinkKeys:      []string{"link"},
				TimeKeys:      []string{"time"},
				TimeLayouts:   isoLayouts,
				TimeFormat:    "06/01/02 15:04",
			}},
		},
		{
			ID:       "channel14",
			Name:     "Channel 14",
			Category: news.TV,
			Strategy: ApifyActor,
			URL:      "https://www.now14.co.il/feed/",
			BaseURL:  "https://www.now14.co.il",
			TimeoutS: 30,
			Rule:     Rule{Feed: &FeedRule{UnwrapPre: true, HebrewMonths: true}},
		},
	}
}
