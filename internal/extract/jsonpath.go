package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"newsflash-bot/internal/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type pathSegment struct {
	raw     string
	key     string
	indexes []int
}

// parsePath splits "a.b[0].c" into segments. An empty path selects the root.
func parsePath(path string) ([]pathSegment, error) {
	if path == "" {
		return nil, nil
	}
	var segs []pathSegment
	for _, part := range strings.Split(path, ".") {
		seg := pathSegment{raw: part}
		key := part
		if i := strings.IndexByte(part, '['); i >= 0 {
			key = part[:i]
			rest := part[i:]
			for rest != "" {
				end := strings.IndexByte(rest, ']')
				if rest[0] != '[' || end < 0 {
					return nil, fmt.Errorf("malformed path segment %q", part)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return nil, fmt.Errorf("malformed index in path segment %q", part)
				}
				seg.indexes = append(seg.indexes, n)
				rest = rest[end+1:]
			}
		}
		if key == "" && len(seg.indexes) == 0 {
			return nil, fmt.Errorf("empty path segment in %q", path)
		}
		seg.key = key
		segs = append(segs, seg)
	}
	return segs, nil
}

// Lookup walks doc along path. A missing key or out-of-range index yields a
// *PathNotFoundError naming the segment that broke.
func Lookup(doc any, path string) (any, error) {
	segs, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	cur := doc
	for _, seg := range segs {
		if seg.key != "" {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, &PathNotFoundError{Path: path, Key: seg.key}
			}
			v, ok := obj[seg.key]
			if !ok || v == nil {
				return nil, &PathNotFoundError{Path: path, Key: seg.key}
			}
			cur = v
		}
		for _, idx := range seg.indexes {
			arr, ok := cur.([]any)
			if !ok || idx >= len(arr) {
				return nil, &PathNotFoundError{Path: path, Key: seg.raw}
			}
			cur = arr[idx]
		}
	}
	return cur, nil
}

func extractJSON(body []byte, rule *registry.JSONRule) ([]Candidate, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	items, err := locateItems(doc, rule)
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(items))
	skipped := 0
	for _, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		out = append(out, Candidate{
			Title:     firstField(obj, rule.TitleKeys),
			Link:      firstField(obj, rule.LinkKeys),
			Published: formatTime(firstField(obj, rule.TimeKeys), rule),
		})
	}

	if skipped > 0 {
		return out, &PartialError{Skipped: skipped, Reason: "item is not an object"}
	}
	return out, nil
}

// locateItems tries the primary path and then each fallback. The first
// non-empty array wins; an empty array counts as found. When nothing resolves
// the error of the primary path is returned.
func locateItems(doc any, rule *registry.JSONRule) ([]any, error) {
	var (
		firstErr error
		found    bool
	)
	for _, path := range append([]string{rule.ItemsPath}, rule.FallbackPaths...) {
		v, err := Lookup(doc, path)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("path %q is not an array", path)
			}
			continue
		}
		found = true
		if len(arr) > 0 {
			return arr, nil
		}
	}
	if found {
		return nil, nil
	}
	return nil, firstErr
}

func firstField(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

func formatTime(raw string, rule *registry.JSONRule) string {
	if raw == "" || rule.TimeFormat == "" {
		return raw
	}
	for _, layout := range rule.TimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(rule.TimeFormat)
		}
	}
	return raw
}
