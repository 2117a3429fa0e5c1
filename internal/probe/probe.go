// Package probe checks that the application under test answers HTTP before
// a browser is launched against it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cgast/uiverify/pkg/verify"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

// ErrNotReady is returned when the target never answered in time.
var ErrNotReady = errors.New("target not ready")

// HTTPProber polls a URL with GET until it answers with a non-5xx status.
type HTTPProber struct {
	timeout      time.Duration
	interval     time.Duration
	allowedHosts []string
	httpClient   *http.Client
}

// Option configures an HTTPProber.
type Option func(*HTTPProber)

// WithTimeout bounds the whole probe.
func WithTimeout(d time.Duration) Option {
	return func(p *HTTPProber) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithInterval sets the delay between attempts.
func WithInterval(d time.Duration) Option {
	return func(p *HTTPProber) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithAllowedHosts restricts probing to the given host names.
// If no hosts are configured, all hosts are permitted.
func WithAllowedHosts(hosts ...string) Option {
	return func(p *HTTPProber) { p.allowedHosts = hosts }
}

// WithHTTPClient replaces the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *HTTPProber) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// New creates an HTTPProber.
func New(opts ...Option) *HTTPProber {
	p := &HTTPProber{
		timeout:    DefaultTimeout,
		interval:   DefaultInterval,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns nil once rawURL answers. Connection errors and 5xx
// responses are retried until the timeout.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) error {
	if err := checkAllowedHost(rawURL, p.allowedHosts); err != nil {
		return err
	}

	var last error
	err := verify.Until(ctx, p.timeout, p.interval, func(ctx context.Context) (bool, error) {
		status, err := p.get(ctx, rawURL)
		if err != nil {
			last = err
			return false, nil
		}
		if status >= http.StatusInternalServerError {
			last = fmt.Errorf("status %d", status)
			return false, nil
		}
		return true, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, verify.ErrConditionTimeout) && last != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotReady, rawURL, last)
	}
	return fmt.Errorf("%w: %s: %w", ErrNotReady, rawURL, err)
}

func (p *HTTPProber) get(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, nil
}

// checkAllowedHost verifies the URL's host is in the allowlist.
func checkAllowedHost(rawURL string, allowed []string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %s", parsed.Scheme, rawURL)
	}
	if len(allowed) == 0 {
		return nil
	}
	host := parsed.Hostname()
	for _, h := range allowed {
		if host == h {
			return nil
		}
	}
	return fmt.Errorf("host %q is not in the allowed list", host)
}
