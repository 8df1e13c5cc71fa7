package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/proxy"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/observability"
)

// RelayFetcher is the http-via-relay strategy for sites that block datacenter
// addresses. In socks5 mode requests leave through a Tor-style SOCKS5 proxy,
// optionally asking for a fresh exit first. In http mode the target is handed
// to a relay service as ?url=.
type RelayFetcher struct {
	mode     string
	http     *HTTPFetcher
	relayURL *url.URL
	tor      *TorController
	logger   *observability.Logger
}

func NewRelayFetcher(cfg *config.Config, logger *observability.Logger) (*RelayFetcher, error) {
	f := &RelayFetcher{mode: cfg.Relay.Mode, logger: logger}

	switch cfg.Relay.Mode {
	case "socks5":
		forward := &net.Dialer{Timeout: cfg.GetConnectTimeout()}
		dialer, err := proxy.SOCKS5("tcp", cfg.Relay.SocksAddr, nil, forward)
		if err != nil {
			return nil, fmt.Errorf("failed to create socks5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		f.http = newHTTPFetcher(cfg, logger, contextDialer.DialContext, false)
		if cfg.Relay.ControlAddr != "" {
			f.tor = NewTorController(cfg.Relay.ControlAddr, cfg.Relay.ControlPassword, cfg.GetConnectTimeout(), cfg.GetRelayRotateWait())
		}
	case "http":
		relayURL, err := url.Parse(cfg.Relay.HTTPURL)
		if err != nil {
			return nil, fmt.Errorf("invalid relay.http_url: %w", err)
		}
		if relayURL.Scheme == "" || relayURL.Host == "" {
			return nil, fmt.Errorf("invalid relay.http_url: %q is not absolute", cfg.Relay.HTTPURL)
		}
		forward := &net.Dialer{Timeout: cfg.GetConnectTimeout()}
		f.http = newHTTPFetcher(cfg, logger, forward.DialContext, false)
		f.relayURL = relayURL
	default:
		return nil, fmt.Errorf("relay.mode %q is not configured", cfg.Relay.Mode)
	}

	return f, nil
}

func (f *RelayFetcher) Fetch(ctx context.Context, req Request) (*Response, error) {
	if f.mode == "http" {
		relayed := req
		relayed.URL = f.relayTarget(req.URL)
		resp, err := f.http.Fetch(ctx, relayed)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) {
				fe.URL = req.URL
			}
			return nil, err
		}
		resp.URL = req.URL
		return resp, nil
	}

	if f.tor != nil {
		if err := f.tor.NewIdentity(ctx); err != nil {
			f.logger.Warn("relay identity rotation failed, using current circuit", "error", err)
		}
	}
	return f.http.Fetch(ctx, req)
}

// relayTarget adds target as the url parameter, keeping any query the relay
// address already has.
func (f *RelayFetcher) relayTarget(target string) string {
	u := *f.relayURL
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()
	return u.String()
}
