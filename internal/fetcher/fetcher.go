package fetcher

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	"newsflash-bot/internal/config"
	"newsflash-bot/internal/registry"
)

// Fetcher retrieves the raw body of one upstream URL.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	Wait    *registry.Wait
}

type Response struct {
	StatusCode int
	Body       []byte
	URL        string
	Headers    http.Header
}

// RequestFor builds the request for one URL of a descriptor.
func RequestFor(d registry.Descriptor, url string) Request {
	return Request{
		URL:     url,
		Headers: d.Headers,
		Timeout: d.Timeout(),
		Wait:    d.Wait,
	}
}

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7"

// BrowserHeaders returns the header set sent with every plain request so
// upstream sites treat it like an ordinary browser visit.
func BrowserHeaders(cfg config.HTTPConfig) http.Header {
	h := http.Header{}
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Accept", defaultAccept)
	if cfg.AcceptLanguage != "" {
		h.Set("Accept-Language", cfg.AcceptLanguage)
	}
	if cfg.Referer != "" {
		h.Set("Referer", cfg.Referer)
	}
	h.Set("Connection", "keep-alive")
	return h
}

// readBody reads resp fully, decoding gzip when the server used it.
func readBody(resp *http.Response) ([]byte, error) {
	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}
	return io.ReadAll(reader)
}
