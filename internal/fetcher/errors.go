package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type ErrorKind string

const (
	KindNetwork    ErrorKind = "network"
	KindStatus     ErrorKind = "status"
	KindTimeout    ErrorKind = "timeout"
	KindEmptyBody  ErrorKind = "empty_body"
	KindConfig     ErrorKind = "config"
	KindDisallowed ErrorKind = "disallowed"
)

// FetchError is returned for every transport-level failure.
type FetchError struct {
	Kind   ErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	case KindEmptyBody:
		return fmt.Sprintf("fetch %s: empty body", e.URL)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExternalServiceError reports a failure of a third-party automation service
// (bad status, no usable run, empty dataset, budget exhausted).
type ExternalServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// classify wraps a transport error, telling timeouts apart from other
// network failures.
func classify(url string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}
