// Package source acquires raw documents: once from standard input or a
// local file, or repeatedly by URL through an HTTP or browser backend.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/patootie/navigator/internal/browser"
)

// Fetch backends.
const (
	BackendHTTP     = "http"
	BackendHeadless = "headless"
	BackendHeadful  = "headful"
)

// Fetcher returns the document text at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// Config selects and tunes a fetch backend.
type Config struct {
	Backend        string
	Timeout        time.Duration
	UserAgent      string
	MaxBytes       int64
	RemoteURL      string
	BlockResources []string
	Logger         *slog.Logger
}

// New builds the fetcher for cfg.Backend. Browser backends do not start
// Chrome until the first fetch.
func New(cfg Config) (Fetcher, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendHTTP:
		return NewHTTPFetcher(
			WithTimeout(cfg.Timeout),
			WithUserAgent(cfg.UserAgent),
			WithMaxBytes(cfg.MaxBytes),
			WithLogger(cfg.Logger),
		), nil
	case BackendHeadless, BackendHeadful:
		return NewBrowserFetcher(browser.Config{
			RemoteURL:        cfg.RemoteURL,
			Headful:          strings.EqualFold(cfg.Backend, BackendHeadful),
			ResourceBlocking: cfg.BlockResources,
			NavigateTimeout:  cfg.Timeout,
			Logger:           cfg.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("source: unknown fetch backend %q", cfg.Backend)
	}
}

// ReadInput reads a document piped on r. It reports absent when r is a
// terminal or carries only whitespace.
func ReadInput(r io.Reader, isTerminal bool) (string, bool, error) {
	if isTerminal || r == nil {
		return "", false, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", false, fmt.Errorf("source: read input: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", false, nil
	}
	return string(b), true, nil
}

// ReadFile reads a local document.
func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("source: read file: %w", err)
	}
	return string(b), nil
}
