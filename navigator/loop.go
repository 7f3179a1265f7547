package navigator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/patootie/idgen"
	"github.com/hazyhaar/patootie/navigator/internal/resolve"
	"github.com/hazyhaar/patootie/navigator/internal/store"
)

// Start describes how a run begins.
type Start struct {
	// URL is the first target. Empty means single-shot mode over Document.
	URL string

	// Document, when set, replaces the first fetch. With no URL it is shown
	// once and the run ends.
	Document string

	// Regenerate forces generate mode for the first URL even when a cached
	// generation exists. The new rules become a new generation.
	Regenerate bool
}

type mode int

const (
	modeGenerate mode = iota
	modeApply
)

func (m mode) String() string {
	if m == modeApply {
		return "apply"
	}
	return "generate"
}

// state is threaded through the steps of one iteration. Each step takes
// the state and returns the next one.
type state struct {
	url        string
	document   string
	haveDoc    bool
	regenerate bool

	cached *store.Parser // current generation, nil on a miss
	mode   mode
	output *Output
	rules  []json.RawMessage
}

// singleShot reports a document with no URL: no cache, no navigation.
func (st state) singleShot() bool { return st.url == "" }

// Run drives the session until the user quits. Uncategorizable documents
// with a known URL are handed to the viewer and end the run without error.
func (n *Navigator) Run(ctx context.Context, start Start) error {
	if start.URL == "" && start.Document == "" {
		return fmt.Errorf("%w: a URL or a document is required", ErrUsage)
	}
	if start.URL != "" && !resolve.IsAbsolute(start.URL) {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrUsage, start.URL)
	}

	log := n.logger.With("session", idgen.New())
	st := state{
		url:        start.URL,
		document:   start.Document,
		haveDoc:    start.Document != "",
		regenerate: start.Regenerate,
	}

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ilog := log.With("iteration", iteration, "url", st.url)

		var err error
		if st, err = n.acquire(ctx, st); err != nil {
			return err
		}
		if st, err = n.lookup(ctx, st); err != nil {
			return err
		}
		st, err = n.process(ctx, st)
		if errors.Is(err, ErrNotCategorizable) && st.mode == modeGenerate {
			return n.fallback(st, ilog, err)
		}
		if err != nil {
			return err
		}
		if st, err = n.persist(ctx, st, ilog); err != nil {
			return err
		}

		res, err := n.render(ctx, st)
		if err != nil {
			return err
		}
		ilog.Info("navigator: rendered",
			"mode", st.mode.String(), "items", len(st.output.Data), "quit", res.Quit)

		next, done, err := advance(st, res)
		if err != nil || done {
			return err
		}
		st = next
	}
}

// acquire fills st.document, fetching the URL unless a document was
// supplied for this iteration.
func (n *Navigator) acquire(ctx context.Context, st state) (state, error) {
	if st.haveDoc {
		return st, nil
	}
	doc, err := n.fetcher.Fetch(ctx, st.url)
	if err != nil {
		return st, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	st.document = doc
	st.haveDoc = true
	return st, nil
}

// lookup loads the current generation for st.url and picks the mode.
// A corrupt generation is an error, never a miss.
func (n *Navigator) lookup(ctx context.Context, st state) (state, error) {
	st.mode = modeGenerate
	if st.singleShot() {
		return st, nil
	}

	cur, err := n.store.Current(ctx, st.url)
	if err != nil {
		return st, fmt.Errorf("navigator: parser cache for %s: %w", st.url, err)
	}
	st.cached = cur
	if cur != nil && !st.regenerate {
		st.mode = modeApply
	}
	return st, nil
}

// process runs the engine in the mode chosen by lookup.
func (n *Navigator) process(ctx context.Context, st state) (state, error) {
	switch st.mode {
	case modeApply:
		out, err := n.engine.Apply(ctx, st.document, st.url, st.cached.Rules)
		if err != nil {
			return st, fmt.Errorf("%w: apply parser generation %d for %s (rerun with --regenerate): %w",
				ErrEngine, st.cached.Sequence, st.url, err)
		}
		st.output = out
	default:
		out, rules, err := n.engine.Generate(ctx, st.document, st.url)
		if errors.Is(err, ErrNotCategorizable) {
			return st, err
		}
		if err != nil {
			return st, fmt.Errorf("%w: generate for %q: %w", ErrEngine, st.url, err)
		}
		st.output = out
		st.rules = rules
	}
	return st, nil
}

// persist stores freshly generated rules as a new generation when the URL
// had none or regeneration was asked for. Applying cached rules never
// writes.
func (n *Navigator) persist(ctx context.Context, st state, log *slog.Logger) (state, error) {
	if st.singleShot() || st.mode != modeGenerate {
		return st, nil
	}
	if st.cached != nil && !st.regenerate {
		return st, nil
	}

	p, err := n.store.Insert(ctx, st.url, st.rules)
	if err != nil {
		return st, fmt.Errorf("navigator: store parser for %s: %w", st.url, err)
	}
	log.Info("navigator: parser stored", "sequence", p.Sequence, "rules", len(p.Rules))
	return st, nil
}

// render shows the output. Single-shot mode shows the first data element
// only.
func (n *Navigator) render(ctx context.Context, st state) (RenderResult, error) {
	out := st.output
	if st.singleShot() && out != nil && len(out.Data) > 1 {
		first := *out
		first.Data = out.Data[:1]
		out = &first
	}
	res, err := n.renderer.Render(ctx, out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		return res, fmt.Errorf("%w: render: %w", ErrEngine, err)
	}
	return res, nil
}

// advance turns the render result into the next state. done is true when
// the run ends cleanly.
func advance(st state, res RenderResult) (next state, done bool, err error) {
	if res.Quit || st.singleShot() {
		return st, true, nil
	}
	target, err := resolve.Next(res.Value, st.url)
	if err != nil {
		return st, false, fmt.Errorf("%w: %q from %s: %w", ErrNavigation, res.Value, st.url, err)
	}
	return state{url: target}, false, nil
}

// fallback hands the URL to the external viewer. Without a URL there is
// nothing to open and the categorization failure is returned.
func (n *Navigator) fallback(st state, log *slog.Logger, cause error) error {
	if st.singleShot() {
		return cause
	}
	log.Info("navigator: not categorizable, opening viewer", "error", cause)
	if err := n.viewer.Open(st.url); err != nil {
		return fmt.Errorf("navigator: open %s in viewer: %w", st.url, err)
	}
	return nil
}
