package source

import (
	"context"
	"fmt"

	"github.com/hazyhaar/patootie/navigator/internal/browser"
)

// BrowserFetcher renders pages in Chrome and returns the live DOM.
type BrowserFetcher struct {
	mgr *browser.Manager
}

// NewBrowserFetcher creates a BrowserFetcher. Chrome starts on first Fetch.
func NewBrowserFetcher(cfg browser.Config) *BrowserFetcher {
	return &BrowserFetcher{mgr: browser.NewManager(cfg)}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	doc, err := f.mgr.RenderHTML(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("source: render %s: %w", pageURL, err)
	}
	return doc, nil
}

// Close shuts Chrome down.
func (f *BrowserFetcher) Close() error {
	return f.mgr.Close()
}
