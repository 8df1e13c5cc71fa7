package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/registry"
	"newsflash-bot/internal/retry"
)

const defaultChallengeSelector = `iframe[src*="challenge"]`

// session is one pooled browser.
type session interface {
	// Render loads req.URL in a fresh page and returns the rendered HTML.
	// The page is closed before Render returns.
	Render(ctx context.Context, req Request) (string, error)
	Close() error
}

// brokenSessionError marks a failure of the browser itself rather than of
// the page, so the session is discarded instead of pooled again.
type brokenSessionError struct {
	err error
}

func (e *brokenSessionError) Error() string { return e.err.Error() }
func (e *brokenSessionError) Unwrap() error { return e.err }

// BrowserFetcher is the headless-browser strategy for pages that only render
// (or only pass bot checks) with JavaScript.
type BrowserFetcher struct {
	cfg        *config.Config
	logger     *observability.Logger
	slots      chan session
	newSession func() (session, error)
}

func NewBrowserFetcher(cfg *config.Config, logger *observability.Logger) *BrowserFetcher {
	f := newBrowserFetcher(cfg, logger, nil)
	f.newSession = f.launch
	return f
}

// newBrowserFetcher builds the pool with size empty slots. An empty slot is
// filled by newSession on first use.
func newBrowserFetcher(cfg *config.Config, logger *observability.Logger, newSession func() (session, error)) *BrowserFetcher {
	size := cfg.Rod.PoolSize
	if size <= 0 {
		size = 1
	}
	slots := make(chan session, size)
	for i := 0; i < size; i++ {
		slots <- nil
	}
	return &BrowserFetcher{
		cfg:        cfg,
		logger:     logger,
		slots:      slots,
		newSession: newSession,
	}
}

func (f *BrowserFetcher) launch() (session, error) {
	controlURL := f.cfg.Rod.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(true).
			Leakless(true).
			Set("disable-blink-features", "AutomationControlled")
		if f.cfg.Rod.ChromePath != "" {
			l = l.Bin(f.cfg.Rod.ChromePath)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	return &rodSession{browser: browser, cfg: f.cfg, logger: f.logger}, nil
}

// Fetch bounds the whole call by req.Timeout and each attempt by the page
// timeout, so retries fit inside the source's budget.
func (f *BrowserFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var resp *Response
	err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: f.cfg.Rod.Retries + 1,
		Delay:       f.cfg.GetRodRetryDelay(),
	}, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.GetRodPageTimeout())
		defer cancel()

		var err error
		resp, err = f.fetchOnce(attemptCtx, req)
		if err != nil {
			f.logger.Warn("browser fetch attempt failed", "url", req.URL, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, classify(req.URL, err)
	}
	return resp, nil
}

// acquire takes a slot, waiting no longer than ctx allows. An empty slot is
// filled with a new session; if that fails the slot goes back empty.
func (f *BrowserFetcher) acquire(ctx context.Context) (session, error) {
	select {
	case s := <-f.slots:
		if s != nil {
			return s, nil
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s, err := f.newSession()
	if err != nil {
		f.slots <- nil
		return nil, err
	}
	return s, nil
}

// release pools a healthy session again; a broken one is closed and its
// slot freed.
func (f *BrowserFetcher) release(s session, healthy bool) {
	if healthy {
		f.slots <- s
		return
	}
	if err := s.Close(); err != nil {
		f.logger.Debug("failed to close browser", "error", err)
	}
	f.slots <- nil
}

func (f *BrowserFetcher) fetchOnce(ctx context.Context, req Request) (*Response, error) {
	s, err := f.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, classify(req.URL, ctx.Err())
		}
		return nil, &FetchError{Kind: KindNetwork, URL: req.URL, Err: err}
	}

	healthy := true
	defer func() { f.release(s, healthy) }()

	html, err := s.Render(ctx, req)
	if err != nil {
		var broken *brokenSessionError
		if errors.As(err, &broken) {
			healthy = false
		}
		return nil, classify(req.URL, err)
	}
	if strings.TrimSpace(html) == "" {
		return nil, &FetchError{Kind: KindEmptyBody, URL: req.URL}
	}

	return &Response{
		StatusCode: http.StatusOK,
		Body:       []byte(html),
		URL:        req.URL,
	}, nil
}

// Close shuts down every idle pooled browser.
func (f *BrowserFetcher) Close() {
	for i := 0; i < cap(f.slots); i++ {
		select {
		case s := <-f.slots:
			if s != nil {
				_ = s.Close()
			}
		default:
		}
	}
}

type rodSession struct {
	browser *rod.Browser
	cfg     *config.Config
	logger  *observability.Logger
}

func (s *rodSession) Close() error {
	return s.browser.Close()
}

func (s *rodSession) Render(ctx context.Context, req Request) (string, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", &brokenSessionError{err: fmt.Errorf("open page: %w", err)}
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Debug("failed to close page", "url", req.URL, "error", err)
		}
	}()

	p := page.Context(ctx)

	if ua := s.cfg.HTTP.UserAgent; ua != "" {
		if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      ua,
			AcceptLanguage: s.cfg.HTTP.AcceptLanguage,
		}); err != nil {
			return "", err
		}
	}

	if err := p.Navigate(req.URL); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}
	if err := s.waitRendered(ctx, p, req.Wait); err != nil {
		return "", err
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// waitRendered applies the fixed delay, waits for the challenge element to go
// away and then for the content selector to appear, all within one timeout.
func (s *rodSession) waitRendered(ctx context.Context, p *rod.Page, wait *registry.Wait) error {
	timeout := s.cfg.GetRodWaitTimeout()
	gone := s.cfg.Rod.ChallengeSelector
	if gone == "" {
		gone = defaultChallengeSelector
	}
	var delay time.Duration
	var selector string

	if wait != nil {
		if wait.TimeoutS > 0 {
			timeout = wait.Timeout()
		}
		if wait.Gone != "" {
			gone = wait.Gone
		}
		delay = wait.Delay()
		selector = wait.Selector
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := retry.Sleep(waitCtx, delay); err != nil {
		return fmt.Errorf("wait delay: %w", err)
	}

	err := p.Context(waitCtx).Wait(rod.Eval(`(s) => !document.querySelector(s)`, gone))
	if err != nil {
		return fmt.Errorf("challenge %q still present: %w", gone, waitErr(err))
	}

	if selector != "" {
		if _, err := p.Context(waitCtx).Element(selector); err != nil {
			return fmt.Errorf("wait for %q: %w", selector, waitErr(err))
		}
	}
	return nil
}

// waitErr maps rod's cancellation errors onto context.DeadlineExceeded so the
// caller classifies them as timeouts.
func waitErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return context.DeadlineExceeded
	}
	return err
}
