// Package normalize is the built-in normalization engine. It turns a raw
// HTML document into structured output (a title plus a list of data items)
// and learns the extraction rules that reproduce that structure on later
// documents of the same shape.
//
// Two modes:
//   - Generate: analyse the document, infer rules, extract with them.
//   - Apply:    extract with previously learned rules, infer nothing.
//
// Rules are opaque to callers: they travel as JSON values and only this
// package reads them.
package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// ErrNotCategorizable is returned by Generate when the document has no
// structure the engine recognises (binary content, empty pages, pages
// without text or links).
var ErrNotCategorizable = errors.New("normalize: document not categorizable")

// ErrBadRule is returned by Apply when a stored rule cannot be used.
var ErrBadRule = errors.New("normalize: unusable rule")

// Rule fields.
const (
	FieldTitle   = "title"
	FieldItem    = "item"
	FieldContent = "content"
)

// Rule kinds.
const (
	KindCSS   = "css"
	KindXPath = "xpath"
)

// Rule locates one part of a document.
type Rule struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
	Expr  string `json:"expr"`
}

// Link is a hyperlink as written in the document. Href is not resolved.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Item is one data element of the output.
type Item struct {
	Heading string `json:"heading"`
	Body    string `json:"body"` // markdown
	Links   []Link `json:"links,omitempty"`
}

// Output is the structured form of a document.
type Output struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
	Data  []Item `json:"data"`
}

// Config tunes rule inference.
type Config struct {
	MinTextLen int // minimum text for a content region (default 50)
	MinItems   int // minimum siblings for a repeated item group (default 3)
}

func (c *Config) defaults() {
	if c.MinTextLen <= 0 {
		c.MinTextLen = 50
	}
	if c.MinItems <= 0 {
		c.MinItems = 3
	}
}

// Engine generates and applies extraction rules.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	md     *converter.Converter
	policy *bluemonday.Policy
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(cfg Config, opts ...Option) *Engine {
	cfg.defaults()
	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Generate infers rules for document and returns the output they extract
// together with the encoded rules. pageURL may be empty.
func (e *Engine) Generate(ctx context.Context, document, pageURL string) (*Output, []json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if looksBinary(document) {
		return nil, nil, fmt.Errorf("%w: binary content", ErrNotCategorizable)
	}

	doc, err := parse(document)
	if err != nil {
		return nil, nil, err
	}

	rules, err := e.infer(doc)
	if err != nil {
		return nil, nil, err
	}

	out, err := e.extract(doc, pageURL, rules)
	if err != nil {
		return nil, nil, err
	}

	encoded := make([]json.RawMessage, 0, len(rules))
	for _, r := range rules {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, nil, fmt.Errorf("normalize: encode rule: %w", err)
		}
		encoded = append(encoded, b)
	}

	e.logger.Debug("normalize: generated",
		"url", pageURL, "rules", len(rules), "items", len(out.Data))
	return out, encoded, nil
}

// Apply extracts document with previously generated rules.
func (e *Engine) Apply(ctx context.Context, document, pageURL string, raw []json.RawMessage) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(raw))
	for i, r := range raw {
		var rule Rule
		if err := json.Unmarshal(r, &rule); err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", ErrBadRule, i, err)
		}
		rules = append(rules, rule)
	}

	doc, err := parse(document)
	if err != nil {
		return nil, err
	}

	out, err := e.extract(doc, pageURL, rules)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("normalize: applied",
		"url", pageURL, "rules", len(rules), "items", len(out.Data))
	return out, nil
}

func parse(document string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("normalize: parse HTML: %w", err)
	}
	return doc, nil
}

// looksBinary reports NUL bytes or well-known binary signatures in the
// first bytes of the document.
func looksBinary(document string) bool {
	head := document
	if len(head) > 512 {
		head = head[:512]
	}
	if strings.IndexByte(head, 0) >= 0 {
		return true
	}
	for _, sig := range []string{"%PDF-", "PK\x03\x04", "\x89PNG", "GIF8", "\xff\xd8\xff"} {
		if strings.HasPrefix(head, sig) {
			return true
		}
	}
	return false
}
