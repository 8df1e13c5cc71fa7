package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"newsflash-bot/internal/observability"
)

// RobotsCache keeps parsed robots.txt per host. A robots.txt that cannot be
// fetched or parsed allows everything.
type RobotsCache struct {
	cache  map[string]*robotsEntry
	ttl    time.Duration
	mu     sync.RWMutex
	logger *observability.Logger
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration, logger *observability.Logger) *RobotsCache {
	return &RobotsCache{
		cache:  make(map[string]*robotsEntry),
		ttl:    ttl,
		logger: logger,
	}
}

func (rc *RobotsCache) IsAllowed(ctx context.Context, target *url.URL, userAgent string, client *http.Client) bool {
	key := target.Scheme + "://" + target.Host

	rc.mu.RLock()
	cached, exists := rc.cache[key]
	rc.mu.RUnlock()

	if !exists || time.Now().After(cached.expiresAt) {
		cached = &robotsEntry{data: rc.load(ctx, key, client), expiresAt: time.Now().Add(rc.ttl)}
		rc.mu.Lock()
		rc.cache[key] = cached
		rc.mu.Unlock()
	}

	if cached.data == nil {
		return true
	}
	return cached.data.TestAgent(target.RequestURI(), userAgent)
}

func (rc *RobotsCache) load(ctx context.Context, origin string, client *http.Client) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		rc.logger.Debug("robots.txt unavailable", "origin", origin, "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		rc.logger.Warn("robots.txt unparsable", "origin", origin, "error", err)
		return nil
	}
	return data
}
