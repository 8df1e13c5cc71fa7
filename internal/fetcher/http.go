package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/retry"
)

// HTTPFetcher is the plain-http strategy.
type HTTPFetcher struct {
	client      *http.Client
	cfg         *config.Config
	logger      *observability.Logger
	robotsCache *RobotsCache
	rateLimiter *RateLimiter
	backoff     retry.Backoff
}

func NewHTTPFetcher(cfg *config.Config, logger *observability.Logger) *HTTPFetcher {
	dialer := &net.Dialer{Timeout: cfg.GetConnectTimeout()}
	return newHTTPFetcher(cfg, logger, dialer.DialContext, cfg.HTTP.RespectRobots)
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func newHTTPFetcher(cfg *config.Config, logger *observability.Logger, dial dialFunc, respectRobots bool) *HTTPFetcher {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext:         dial,
			MaxIdleConns:        cfg.HTTP.MaxIdleConnections,
			MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnectionsPerHost,
			IdleConnTimeout:     cfg.GetIdleConnectionTimeout(),
		},
	}

	f := &HTTPFetcher{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		rateLimiter: NewRateLimiter(cfg.RateLimit.MaxConcurrentPerHost, cfg.RateLimit.RPM),
		backoff: retry.Backoff{
			Min:       cfg.GetBackoffMin(),
			Max:       cfg.GetBackoffMax(),
			JitterPct: cfg.Backoff.JitterPct,
		},
	}
	if respectRobots {
		f.robotsCache = NewRobotsCache(cfg.GetRobotsCacheTTL(), logger)
	}
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	parsedURL, err := url.Parse(req.URL)
	if err != nil || parsedURL.Host == "" {
		return nil, &FetchError{Kind: KindConfig, URL: req.URL, Err: fmt.Errorf("invalid URL")}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = f.cfg.GetTotalTimeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if f.robotsCache != nil && !f.robotsCache.IsAllowed(ctx, parsedURL, f.cfg.HTTP.UserAgent, f.client) {
		return nil, &FetchError{Kind: KindDisallowed, URL: req.URL, Err: fmt.Errorf("disallowed by robots.txt")}
	}

	release, err := f.rateLimiter.Acquire(ctx, parsedURL.Host)
	if err != nil {
		return nil, classify(req.URL, err)
	}
	defer release()

	var lastErr error
	for attempt := 0; attempt <= f.cfg.HTTP.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := retry.Sleep(ctx, f.backoff.Delay(attempt)); err != nil {
				return nil, classify(req.URL, err)
			}
		}

		resp, err := f.fetchOnce(ctx, req)
		if err != nil {
			lastErr = classify(req.URL, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			f.logger.Debug("fetch attempt failed", "url", req.URL, "attempt", attempt+1, "error", err)
			continue
		}

		// Retry on 5xx or 429
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &FetchError{Kind: KindStatus, URL: req.URL, Status: resp.StatusCode}
			if attempt < f.cfg.HTTP.MaxRetries {
				f.logger.Debug("retrying after server status", "url", req.URL, "status", resp.StatusCode)
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &FetchError{Kind: KindStatus, URL: req.URL, Status: resp.StatusCode}
		}
		if len(bytes.TrimSpace(resp.Body)) == 0 {
			return nil, &FetchError{Kind: KindEmptyBody, URL: req.URL, Status: resp.StatusCode}
		}

		return resp, nil
	}

	return nil, lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, r Request) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, err
	}

	req.Header = BrowserHeaders(f.cfg.HTTP)
	req.Header.Set("Accept-Encoding", "gzip")
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("failed to close response body", "error", err)
		}
	}()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("response received",
		"url", r.URL,
		"status", resp.StatusCode,
		"content_encoding", resp.Header.Get("Content-Encoding"),
		"content_type", resp.Header.Get("Content-Type"),
		"body_bytes", len(body),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		URL:        resp.Request.URL.String(),
		Headers:    resp.Header,
	}, nil
}
