// Package reachability probes destination URLs before they are stored.
package reachability

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/darkodi/link-shortener/internal/logger"
)

// DefaultTimeout bounds both connecting and waiting for the response headers
const DefaultTimeout = 5 * time.Second

// Checker reports whether a URL currently answers
type Checker interface {
	IsReachable(ctx context.Context, rawURL string) bool
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context, rawURL string) bool

func (f CheckerFunc) IsReachable(ctx context.Context, rawURL string) bool {
	return f(ctx, rawURL)
}

// HTTPChecker sends a HEAD request and accepts any 2xx or 3xx answer
type HTTPChecker struct {
	client  *http.Client
	timeout time.Duration
	log     *logger.Logger
}

// NewHTTPChecker creates a checker; timeout <= 0 means DefaultTimeout
func NewHTTPChecker(timeout time.Duration, log *logger.Logger) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	return &HTTPChecker{
		client: &http.Client{
			Transport: transport,
			Timeout:   2 * timeout,
			// a redirect answer is already a success
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
		log:     log,
	}
}

// IsReachable returns false on any error, timeout or status outside [200,400)
func (c *HTTPChecker) IsReachable(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		c.log.Debug("reachability: bad request", "url", rawURL, "error", err.Error())
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("reachability: request failed", "url", rawURL, "error", err.Error())
		return false
	}
	resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 400
	if !ok {
		c.log.Debug("reachability: bad status", "url", rawURL, "status", resp.StatusCode)
	}
	return ok
}
