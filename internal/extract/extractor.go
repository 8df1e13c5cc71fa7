package extract

import (
	"fmt"

	"newsflash-bot/internal/registry"
)

// Candidate is a raw record as found in the upstream document, before
// defaults and link resolution are applied.
type Candidate struct {
	Title     string
	Link      string
	Published string
}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract applies rule to body. It never panics; candidates may come back
// together with a *PartialError.
func (e *Extractor) Extract(body []byte, rule registry.Rule) (cands []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			cands = nil
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	switch {
	case rule.CSS != nil:
		return extractCSS(body, rule.CSS)
	case rule.JSON != nil:
		return extractJSON(body, rule.JSON)
	case rule.Feed != nil:
		return extractFeed(body, rule.Feed)
	}
	return nil, fmt.Errorf("rule has no variant set")
}
