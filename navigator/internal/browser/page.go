package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// RenderHTML opens a stealth tab, navigates to pageURL, waits for the load
// event and returns the serialised DOM. The tab is always closed.
func (m *Manager) RenderHTML(ctx context.Context, pageURL string) (string, error) {
	b, err := m.Browser(ctx)
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			m.cfg.Logger.Debug("browser: close tab", "error", err)
		}
	}()

	if len(m.cfg.ResourceBlocking) > 0 {
		router := blockResources(page, m.cfg.ResourceBlocking)
		defer func() { _ = router.Stop() }()
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigateTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if err := p.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load", "url", pageURL, "error", err)
	}

	return outerHTML(p)
}

func outerHTML(p *rod.Page) (string, error) {
	res, err := p.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: read DOM: %w", err)
	}
	return res.Value.Str(), nil
}
