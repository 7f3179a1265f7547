package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxBytes  = 10 << 20
	defaultTimeout   = 30 * time.Second
)

// HTTPFetcher performs plain GETs.
type HTTPFetcher struct {
	client   *resty.Client
	ua       string
	timeout  time.Duration
	maxBytes int64
	logger   *slog.Logger
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithClient replaces the resty client.
func WithClient(c *resty.Client) HTTPOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header. Empty keeps the default.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes caps the body read. Zero keeps the default.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(f *HTTPFetcher) { f.logger = l }
}

// NewHTTPFetcher creates an HTTPFetcher with defaults.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		ua:       defaultUserAgent,
		timeout:  defaultTimeout,
		maxBytes: defaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.client == nil {
		f.client = resty.New()
	}
	f.client.
		SetTimeout(f.timeout).
		SetHeader("User-Agent", f.ua).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5")
	return f
}

// Fetch GETs pageURL and returns the body decoded to UTF-8. Non-2xx
// responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return "", fmt.Errorf("source: get %s: %w", pageURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", fmt.Errorf("source: get %s: status %d", pageURL, code)
	}

	contentType := resp.Header().Get("Content-Type")
	r, err := charset.NewReader(io.LimitReader(body, f.maxBytes), contentType)
	if err != nil {
		return "", fmt.Errorf("source: decode %s: %w", pageURL, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("source: read %s: %w", pageURL, err)
	}

	f.logger.Debug("source: fetched",
		"url", pageURL, "status", resp.StatusCode(),
		"content_type", contentType, "size", len(b))
	return string(b), nil
}

// Close is a no-op; the HTTP fetcher holds no process resources.
func (f *HTTPFetcher) Close() error { return nil }
