package navigator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/patootie/navigator/internal/normalize"
	"github.com/hazyhaar/patootie/navigator/internal/render"
)

const pageA = "http://example.com/a"

var (
	r1 = rules(`{"field":"title","kind":"css","expr":"title"}`)
	r2 = rules(`{"field":"title","kind":"css","expr":"h1"}`, `{"field":"content","kind":"xpath","expr":"/html/body"}`)
)

func TestRun_FirstVisitStoresGenerationOne(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	h.engine.rules = r1

	require.NoError(t, h.nav.Run(context.Background(), Start{URL: pageA}))

	seq, ok, err := h.store.CurrentSequence(context.Background(), pageA)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, seq)

	cur, err := h.store.Current(context.Background(), pageA)
	require.NoError(t, err)
	assert.Equal(t, r1, cur.Rules)
	assert.Equal(t, []string{pageA}, h.engine.generated)
	assert.Len(t, h.renderer.seen, 1)
}

func TestRun_CachedURLAppliesWithoutStoring(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	ctx := context.Background()
	_, err := h.store.Insert(ctx, pageA, r1)
	require.NoError(t, err)

	require.NoError(t, h.nav.Run(ctx, Start{URL: pageA}))

	assert.Empty(t, h.engine.generated)
	require.Len(t, h.engine.applied, 1)
	assert.Equal(t, r1, h.engine.applied[0].rules)

	gens, err := h.store.Generations(ctx, pageA)
	require.NoError(t, err)
	assert.Len(t, gens, 1, "apply mode never writes")
}

func TestRun_AppliesOnlyTheCurrentGeneration(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	ctx := context.Background()
	_, err := h.store.Insert(ctx, pageA, r1)
	require.NoError(t, err)
	_, err = h.store.Insert(ctx, pageA, r2)
	require.NoError(t, err)

	require.NoError(t, h.nav.Run(ctx, Start{URL: pageA}))
	require.Len(t, h.engine.applied, 1)
	assert.Equal(t, r2, h.engine.applied[0].rules)
}

func TestRun_RegenerateAddsGeneration(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	ctx := context.Background()
	_, err := h.store.Insert(ctx, pageA, r1)
	require.NoError(t, err)
	h.engine.rules = r2

	require.NoError(t, h.nav.Run(ctx, Start{URL: pageA, Regenerate: true}))

	assert.Empty(t, h.engine.applied)
	seq, _, err := h.store.CurrentSequence(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, 2, seq)

	gens, err := h.store.Generations(ctx, pageA)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, r1, gens[0].Rules, "older generation is kept")
	assert.Equal(t, r2, gens[1].Rules)
}

func TestRun_RegenerateOnlyAppliesToFirstURL(t *testing.T) {
	pageB := "http://example.com/b"
	h := newHarness(t, map[string]string{pageA: "<a/>", pageB: "<b/>"})
	ctx := context.Background()
	_, err := h.store.Insert(ctx, pageA, r1)
	require.NoError(t, err)
	_, err = h.store.Insert(ctx, pageB, r1)
	require.NoError(t, err)
	h.engine.rules = r2
	h.renderer.results = []RenderResult{{Value: pageB}}

	require.NoError(t, h.nav.Run(ctx, Start{URL: pageA, Regenerate: true}))

	assert.Equal(t, []string{pageA}, h.engine.generated)
	require.Len(t, h.engine.applied, 1)
	assert.Equal(t, pageB, h.engine.applied[0].url)

	seq, _, err := h.store.CurrentSequence(ctx, pageB)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestRun_RelativeSelectionResolvesAgainstHost(t *testing.T) {
	start := "http://example.com/a/x"
	next := "http://example.com/page?id=2"
	h := newHarness(t, map[string]string{start: "<x/>", next: "<p/>"})
	h.renderer.results = []RenderResult{{Value: "/page?id=2"}}

	require.NoError(t, h.nav.Run(context.Background(), Start{URL: start}))
	assert.Equal(t, []string{start, next}, h.fetcher.calls)
	assert.Equal(t, []string{start, next}, h.engine.generated)
}

func TestRun_AbsoluteSelectionIsUsedVerbatim(t *testing.T) {
	next := "https://other.test/path?q=1#frag"
	h := newHarness(t, map[string]string{pageA: "<a/>", next: "<b/>"})
	h.renderer.results = []RenderResult{{Value: next}}

	require.NoError(t, h.nav.Run(context.Background(), Start{URL: pageA}))
	assert.Equal(t, []string{pageA, next}, h.fetcher.calls)
}

func TestRun_NotCategorizableOpensViewer(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "%PDF-1.7"})
	h.engine.genErr = errors.Join(normalize.ErrNotCategorizable, errors.New("binary content"))

	require.NoError(t, h.nav.Run(context.Background(), Start{URL: pageA}))

	assert.Equal(t, []string{pageA}, h.viewer.opened)
	assert.Empty(t, h.renderer.seen)
	_, ok, err := h.store.CurrentSequence(context.Background(), pageA)
	require.NoError(t, err)
	assert.False(t, ok, "nothing is persisted")
}

func TestRun_ViewerFailureIsReported(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "%PDF-1.7"})
	h.engine.genErr = normalize.ErrNotCategorizable
	h.viewer.err = errors.New("no display")

	err := h.nav.Run(context.Background(), Start{URL: pageA})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestRun_NotCategorizableWithoutURLIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.genErr = normalize.ErrNotCategorizable

	err := h.nav.Run(context.Background(), Start{Document: "\x00\x01"})
	assert.ErrorIs(t, err, ErrNotCategorizable)
	assert.Empty(t, h.viewer.opened)
}

func TestRun_SingleShotShowsFirstItemOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.out = &Output{Title: "stdin", Data: []Item{{Heading: "one"}, {Heading: "two"}, {Heading: "three"}}}
	h.renderer.results = []RenderResult{{Value: "/elsewhere"}}

	require.NoError(t, h.nav.Run(context.Background(), Start{Document: "<html/>"}))

	assert.Empty(t, h.fetcher.calls, "single-shot never fetches")
	require.Len(t, h.renderer.seen, 1)
	require.Len(t, h.renderer.seen[0].Data, 1)
	assert.Equal(t, "one", h.renderer.seen[0].Data[0].Heading)
	assert.Len(t, h.engine.out.Data, 3, "engine output is not modified")

	var count int
	require.NoError(t, h.store.DB.QueryRow(`SELECT COUNT(*) FROM parsers`).Scan(&count))
	assert.Zero(t, count, "no URL, no cache entry")
}

func TestRun_DocumentWithURLReplacesFirstFetch(t *testing.T) {
	h := newHarness(t, map[string]string{})
	h.engine.rules = r1

	require.NoError(t, h.nav.Run(context.Background(), Start{URL: pageA, Document: "<html/>"}))

	assert.Empty(t, h.fetcher.calls)
	seq, ok, err := h.store.CurrentSequence(context.Background(), pageA)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, seq)
}

func TestRun_CorruptCacheIsFatal(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	_, err := h.store.DB.Exec(`INSERT INTO parsers (url, sequence_number, rules, created_at) VALUES (?, 1, '{broken', 0)`, pageA)
	require.NoError(t, err)

	err = h.nav.Run(context.Background(), Start{URL: pageA})
	assert.ErrorIs(t, err, ErrCacheCorrupt)
	assert.Empty(t, h.engine.generated, "corruption is not a cache miss")
	assert.Empty(t, h.engine.applied)
}

func TestRun_ApplyFailureIsEngineError(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	ctx := context.Background()
	_, err := h.store.Insert(ctx, pageA, r1)
	require.NoError(t, err)
	h.engine.applyErr = normalize.ErrBadRule

	err = h.nav.Run(ctx, Start{URL: pageA})
	require.ErrorIs(t, err, ErrEngine)
	assert.ErrorIs(t, err, normalize.ErrBadRule)
	assert.Contains(t, err.Error(), "--regenerate")
	assert.Empty(t, h.engine.generated, "no silent fallback to generate mode")

	seq, _, err := h.store.CurrentSequence(ctx, pageA)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestRun_FetchErrorIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.fetcher.err = errors.New("connection refused")

	err := h.nav.Run(context.Background(), Start{URL: pageA})
	assert.ErrorIs(t, err, ErrFetch)
	assert.Empty(t, h.engine.generated)
}

func TestRun_RenderFailureIsEngineError(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	h.renderer.err = render.ErrInvalidOutput

	err := h.nav.Run(context.Background(), Start{URL: pageA})
	assert.ErrorIs(t, err, ErrEngine)
	assert.ErrorIs(t, err, render.ErrInvalidOutput)
}

func TestRun_UnresolvableSelectionIsFatal(t *testing.T) {
	for _, value := range []string{"http://[::1", "mailto:someone@example.com", ""} {
		t.Run(value, func(t *testing.T) {
			h := newHarness(t, map[string]string{pageA: "<html/>"})
			h.renderer.results = []RenderResult{{Value: value}}

			err := h.nav.Run(context.Background(), Start{URL: pageA})
			assert.ErrorIs(t, err, ErrNavigation)
			assert.Len(t, h.fetcher.calls, 1)
		})
	}
}

func TestRun_UsageErrors(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, h.nav.Run(ctx, Start{}), ErrUsage)
	assert.ErrorIs(t, h.nav.Run(ctx, Start{URL: "/relative/only"}), ErrUsage)
	assert.Empty(t, h.fetcher.calls)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t, map[string]string{pageA: "<html/>"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, h.nav.Run(ctx, Start{URL: pageA}), context.Canceled)
}

func TestAdvance(t *testing.T) {
	st := state{url: "http://example.com/a/x", regenerate: true, haveDoc: true, document: "d"}

	next, done, err := advance(st, RenderResult{Value: "b?c=1"})
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, state{url: "http://example.com/b?c=1"}, next)

	_, done, err = advance(st, RenderResult{Quit: true})
	require.NoError(t, err)
	assert.True(t, done)

	_, done, err = advance(state{}, RenderResult{Value: "http://example.com/"})
	require.NoError(t, err)
	assert.True(t, done, "single-shot ends after one render")
}
