// Package navigator drives an interactive browsing session over
// documents: acquire a document, normalize it with learned or freshly
// generated extraction rules, show it, and follow the user's selection.
//
// Learned rules ("parsers") are kept per source URL in a SQLite cache. Each
// regeneration adds a new generation; the highest sequence number is the
// current one and older generations stay for audit and rollback.
//
//	acquire → lookup → generate|apply → persist → render → resolve → acquire …
//
// Usage:
//
//	nav, err := navigator.New(cfg, logger)
//	defer nav.Close()
//	err = nav.Run(ctx, navigator.Start{URL: "https://example.com/"})
package navigator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"

	webbrowser "github.com/pkg/browser"

	"github.com/hazyhaar/patootie/dbopen"
	"github.com/hazyhaar/patootie/navigator/internal/normalize"
	"github.com/hazyhaar/patootie/navigator/internal/render"
	"github.com/hazyhaar/patootie/navigator/internal/source"
	"github.com/hazyhaar/patootie/navigator/internal/store"
)

// Structured output exchanged between the engine and the renderer.
type (
	Output = normalize.Output
	Item   = normalize.Item
	Link   = normalize.Link
)

// RenderResult is a navigation value chosen by the user, or a quit.
type RenderResult = render.Result

// Fetcher acquires the document at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
	Close() error
}

// Engine normalizes documents. Generate infers new rules; Apply reuses
// rules produced by an earlier Generate. Rules are opaque JSON values.
type Engine interface {
	Generate(ctx context.Context, document, pageURL string) (*Output, []json.RawMessage, error)
	Apply(ctx context.Context, document, pageURL string, rules []json.RawMessage) (*Output, error)
}

// Renderer shows output and returns the user's choice.
type Renderer interface {
	Render(ctx context.Context, out *Output) (RenderResult, error)
}

// Viewer opens a URL outside the session.
type Viewer interface {
	Open(url string) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(url string) error

func (f ViewerFunc) Open(url string) error { return f(url) }

// Navigator wires the parser cache to its collaborators.
type Navigator struct {
	cfg      *Config
	logger   *slog.Logger
	store    *store.Store
	engine   Engine
	fetcher  Fetcher
	renderer Renderer
	viewer   Viewer

	in  io.Reader
	out io.Writer

	ownStore   bool
	ownFetcher bool
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithFetcher replaces the configured fetch backend.
func WithFetcher(f Fetcher) Option {
	return func(n *Navigator) { n.fetcher = f }
}

// WithEngine replaces the built-in normalization engine.
func WithEngine(e Engine) Option {
	return func(n *Navigator) { n.engine = e }
}

// WithRenderer replaces the built-in terminal session.
func WithRenderer(r Renderer) Option {
	return func(n *Navigator) { n.renderer = r }
}

// WithViewer replaces the system browser used for uncategorizable pages.
func WithViewer(v Viewer) Option {
	return func(n *Navigator) { n.viewer = v }
}

// WithTerminal sets where the built-in session reads commands and writes
// screens. Defaults to stdin and stdout.
func WithTerminal(in io.Reader, out io.Writer) Option {
	return func(n *Navigator) {
		n.in = in
		n.out = out
	}
}

func withStore(s *store.Store) Option {
	return func(n *Navigator) { n.store = s }
}

// New opens the parser cache and builds the default collaborators for
// anything not supplied through options.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Navigator, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	n := &Navigator{
		cfg:    cfg,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	for _, o := range opts {
		o(n)
	}

	if n.store == nil {
		var dbOpts []dbopen.Option
		if cfg.TraceSQL {
			dbOpts = append(dbOpts, dbopen.WithDriver(store.TraceDriver))
		}
		s, err := store.Open(cfg.DBPath, dbOpts...)
		if err != nil {
			return nil, err
		}
		n.store = s
		n.ownStore = true
	}

	if n.fetcher == nil {
		f, err := source.New(source.Config{
			Backend:        cfg.Fetch.Backend,
			Timeout:        cfg.Fetch.Timeout,
			UserAgent:      cfg.Fetch.UserAgent,
			MaxBytes:       cfg.Fetch.MaxBytes,
			RemoteURL:      cfg.Fetch.RemoteURL,
			BlockResources: cfg.Fetch.BlockResources,
			Logger:         logger,
		})
		if err != nil {
			n.Close()
			return nil, errors.Join(ErrUsage, err)
		}
		n.fetcher = f
		n.ownFetcher = true
	}

	if n.engine == nil {
		n.engine = normalize.New(normalize.Config{
			MinTextLen: cfg.Normalize.MinTextLen,
			MinItems:   cfg.Normalize.MinItems,
		}, normalize.WithLogger(logger))
	}

	if n.renderer == nil {
		n.renderer = render.NewSession(n.in, n.out, render.Config{
			PageSize:  cfg.Render.PageSize,
			BodyChars: cfg.Render.BodyChars,
		}, render.WithLogger(logger))
	}

	if n.viewer == nil {
		n.viewer = ViewerFunc(webbrowser.OpenURL)
	}

	logger.Debug("navigator: ready",
		"db", cfg.DBPath, "fetch", cfg.Fetch.Backend)
	return n, nil
}

// Close releases the cache and the fetch backend that New created.
func (n *Navigator) Close() error {
	var errs []error
	if n.ownFetcher && n.fetcher != nil {
		errs = append(errs, n.fetcher.Close())
	}
	if n.ownStore && n.store != nil {
		errs = append(errs, n.store.Close())
	}
	return errors.Join(errs...)
}

// ReadDocument reads a document piped on r. It reports absent when r is a
// terminal or carries only whitespace.
func ReadDocument(r io.Reader, isTerminal bool) (string, bool, error) {
	return source.ReadInput(r, isTerminal)
}

// ReadDocumentFile reads a local document.
func ReadDocumentFile(path string) (string, error) {
	return source.ReadFile(path)
}
