package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/patootie/dbopen"
	"github.com/hazyhaar/patootie/navigator/internal/store"
)

type fakeFetcher struct {
	pages map[string]string
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (string, error) {
	f.calls = append(f.calls, pageURL)
	if f.err != nil {
		return "", f.err
	}
	doc, ok := f.pages[pageURL]
	if !ok {
		return "", fmt.Errorf("no page at %s", pageURL)
	}
	return doc, nil
}

func (f *fakeFetcher) Close() error { return nil }

type applyCall struct {
	url   string
	rules []json.RawMessage
}

type fakeEngine struct {
	out      *Output
	rules    []json.RawMessage
	genErr   error
	applyErr error

	generated []string
	applied   []applyCall
}

func (e *fakeEngine) Generate(_ context.Context, _, pageURL string) (*Output, []json.RawMessage, error) {
	e.generated = append(e.generated, pageURL)
	if e.genErr != nil {
		return nil, nil, e.genErr
	}
	return e.output(pageURL), e.rules, nil
}

func (e *fakeEngine) Apply(_ context.Context, _, pageURL string, rules []json.RawMessage) (*Output, error) {
	e.applied = append(e.applied, applyCall{url: pageURL, rules: rules})
	if e.applyErr != nil {
		return nil, e.applyErr
	}
	return e.output(pageURL), nil
}

func (e *fakeEngine) output(pageURL string) *Output {
	if e.out != nil {
		return e.out
	}
	return &Output{URL: pageURL, Title: "page", Data: []Item{{Heading: "only"}}}
}

// scriptRenderer returns its results in order, then quits.
type scriptRenderer struct {
	results []RenderResult
	err     error
	seen    []*Output
}

func (r *scriptRenderer) Render(_ context.Context, out *Output) (RenderResult, error) {
	r.seen = append(r.seen, out)
	if r.err != nil {
		return RenderResult{}, r.err
	}
	if len(r.results) == 0 {
		return RenderResult{Quit: true}, nil
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res, nil
}

type recordingViewer struct {
	opened []string
	err    error
}

func (v *recordingViewer) Open(url string) error {
	v.opened = append(v.opened, url)
	return v.err
}

type harness struct {
	nav      *Navigator
	store    *store.Store
	fetcher  *fakeFetcher
	engine   *fakeEngine
	renderer *scriptRenderer
	viewer   *recordingViewer
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, pages map[string]string) *harness {
	t.Helper()
	h := &harness{
		store:    &store.Store{DB: dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))},
		fetcher:  &fakeFetcher{pages: pages},
		engine:   &fakeEngine{},
		renderer: &scriptRenderer{},
		viewer:   &recordingViewer{},
	}
	nav, err := New(&Config{}, quietLogger(),
		withStore(h.store),
		WithFetcher(h.fetcher),
		WithEngine(h.engine),
		WithRenderer(h.renderer),
		WithViewer(h.viewer),
	)
	require.NoError(t, err)
	t.Cleanup(func() { nav.Close() })
	h.nav = nav
	return h
}

func rules(raw ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out
}
