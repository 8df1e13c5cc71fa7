package registry

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync/atomic"

	"newsflash-bot/internal/news"
)

const DefaultMaxItems = 3

var ErrSourceNotFound = errors.New("source not found")

type snapshot struct {
	ordered []Descriptor
	byID    map[string]int
}

// Registry is read-only at request time. Replace swaps the whole snapshot, so
// callers holding a Descriptor keep a consistent copy.
type Registry struct {
	current atomic.Pointer[snapshot]
}

func New(descs []Descriptor) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(descs); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace validates descs and installs them as the new snapshot.
func (r *Registry) Replace(descs []Descriptor) error {
	snap, err := build(descs)
	if err != nil {
		return err
	}
	r.current.Store(snap)
	return nil
}

// Lookup returns the sources of a category in registry order.
func (r *Registry) Lookup(category news.Category) []Descriptor {
	snap := r.current.Load()
	var out []Descriptor
	for _, d := range snap.ordered {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) LookupOne(id string) (Descriptor, error) {
	snap := r.current.Load()
	idx, ok := snap.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	return snap.ordered[idx], nil
}

// Categories returns the categories that have sources, in display order.
func (r *Registry) Categories() []news.Category {
	snap := r.current.Load()
	out := make([]news.Category, 0, len(news.Categories))
	for _, c := range news.Categories {
		if slices.ContainsFunc(snap.ordered, func(d Descriptor) bool { return d.Category == c }) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) All() []Descriptor {
	return slices.Clone(r.current.Load().ordered)
}

func build(descs []Descriptor) (*snapshot, error) {
	snap := &snapshot{
		ordered: make([]Descriptor, 0, len(descs)),
		byID:    make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		d = withDefaults(d)
		if err := Validate(d); err != nil {
			return nil, err
		}
		if _, dup := snap.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate source id: %s", d.ID)
		}
		snap.byID[d.ID] = len(snap.ordered)
		snap.ordered = append(snap.ordered, d)
	}
	for _, c := range news.Categories {
		found := false
		for _, d := range snap.ordered {
			if d.Category == c {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("category %s has no sources", c)
		}
	}
	return snap, nil
}

func withDefaults(d Descriptor) Descriptor {
	if d.MaxItems == 0 {
		d.MaxItems = DefaultMaxItems
	}
	if d.BaseURL == "" {
		if u, err := url.Parse(d.URL); err == nil && u.Scheme != "" && u.Host != "" {
			d.BaseURL = u.Scheme + "://" + u.Host
		}
	}
	if d.Strategy == "" {
		d.Strategy = PlainHTTP
	}
	return d
}

// Validate checks a single descriptor.
func Validate(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("source id is required")
	}
	if _, err := news.ParseCategory(string(d.Category)); err != nil {
		return fmt.Errorf("source %s: %w", d.ID, err)
	}
	if !slices.Contains(strategies, d.Strategy) {
		return fmt.Errorf("source %s: unknown strategy %q", d.ID, d.Strategy)
	}
	if d.URL == "" {
		return fmt.Errorf("source %s: url is required", d.ID)
	}
	base, err := url.Parse(d.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("source %s: base_url must be absolute, got %q", d.ID, d.BaseURL)
	}
	if d.MaxItems < 0 {
		return fmt.Errorf("source %s: max_items must be > 0", d.ID)
	}
	set := 0
	for _, present := range []bool{d.Rule.CSS != nil, d.Rule.JSON != nil, d.Rule.Feed != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("source %s: exactly one of rule.css, rule.json, rule.feed must be set", d.ID)
	}
	if d.Rule.CSS != nil && d.Rule.CSS.Container == "" {
		return fmt.Errorf("source %s: rule.css.container is required", d.ID)
	}
	return nil
}
