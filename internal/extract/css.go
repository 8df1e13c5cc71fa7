package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newsflash-bot/internal/registry"
)

// "10:42headline" and "10:42 - headline" both split into clock and title.
var clockPrefixRe = regexp.MustCompile(`^(\d{1,2}:\d{2})\s*[:\-–]?\s*(.+)$`)

func extractCSS(body []byte, rule *registry.CSSRule) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	containers := doc.Find(rule.Container)
	if containers.Length() == 0 && rule.FallbackContainer != "" {
		containers = doc.Find(rule.FallbackContainer)
	}
	if containers.Length() == 0 {
		path := rule.Container
		if rule.FallbackContainer != "" {
			path = rule.Container + " | " + rule.FallbackContainer
		}
		return nil, &PathNotFoundError{Path: path, Key: rule.Container}
	}

	var out []Candidate
	containers.Each(func(_ int, sel *goquery.Selection) {
		c := Candidate{}

		if len(rule.TitleSelectors) == 0 {
			c.Title = strings.TrimSpace(sel.Text())
		} else {
			c.Title = trySelectors(sel, rule.TitleSelectors)
		}
		if slices.Contains(rule.SkipTitles, c.Title) {
			return
		}

		c.Link = findLink(sel, rule)
		c.Published = findTime(sel, rule)

		if rule.ClockPrefix && c.Published == "" {
			if m := clockPrefixRe.FindStringSubmatch(c.Title); m != nil {
				c.Published = m[1]
				c.Title = strings.TrimSpace(m[2])
			}
		}

		out = append(out, c)
	})

	return out, nil
}

// trySelectors returns the text of the first selector that yields any.
func trySelectors(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(s.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func findLink(sel *goquery.Selection, rule *registry.CSSRule) string {
	if rule.LinkAncestor != "" {
		if href, ok := sel.Closest(rule.LinkAncestor).Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	for _, selector := range rule.LinkSelectors {
		if href, ok := sel.Find(selector).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	// the container itself may be the anchor
	if href, ok := sel.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}

func findTime(sel *goquery.Selection, rule *registry.CSSRule) string {
	for _, selector := range rule.TimeSelectors {
		matches := sel.Find(selector)
		if rule.TimeIndex >= matches.Length() {
			continue
		}
		text := strings.TrimSpace(matches.Eq(rule.TimeIndex).Text())
		if text != "" {
			return text
		}
	}
	return ""
}
