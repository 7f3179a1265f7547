package normalize

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxHeading caps headings derived from body text.
const maxHeading = 120

// extract runs rules against doc. Every rule must be usable; a rule that
// matches nothing simply contributes nothing.
func (e *Engine) extract(doc *goquery.Document, pageURL string, rules []Rule) (*Output, error) {
	out := &Output{URL: pageURL, Data: []Item{}}

	for i, r := range rules {
		nodes, err := selectNodes(doc, r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		switch r.Field {
		case FieldTitle:
			if len(nodes) > 0 && out.Title == "" {
				out.Title = collectText(nodes[0])
			}
		case FieldItem:
			for _, n := range nodes {
				out.Data = append(out.Data, e.item(n, pageURL, ""))
			}
		case FieldContent:
			for _, n := range nodes {
				out.Data = append(out.Data, e.item(n, pageURL, out.Title))
			}
		default:
			return nil, fmt.Errorf("%w: rule %d: unknown field %q", ErrBadRule, i, r.Field)
		}
	}
	return out, nil
}

func selectNodes(doc *goquery.Document, r Rule) ([]*html.Node, error) {
	if strings.TrimSpace(r.Expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrBadRule)
	}
	switch r.Kind {
	case KindCSS:
		sel, err := compileCSS(r.Expr)
		if err != nil {
			return nil, err
		}
		return doc.FindMatcher(sel).Nodes, nil
	case KindXPath:
		return evalXPath(doc.Nodes[0], r.Expr), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadRule, r.Kind)
	}
}

// compileCSS compiles expr so an invalid stored selector is reported
// instead of matching nothing.
func compileCSS(expr string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: css %q: %v", ErrBadRule, expr, err)
	}
	return sel, nil
}

// item converts one matched node into a data item. fallbackHeading is used
// when the node has no heading of its own.
func (e *Engine) item(n *html.Node, pageURL, fallbackHeading string) Item {
	it := Item{
		Heading: heading(n),
		Body:    e.markdown(n, pageURL),
		Links:   links(n),
	}
	if it.Heading == "" {
		it.Heading = fallbackHeading
	}
	return it
}

// heading picks the first h1-h6 text, then the first link text, then the
// start of the node text.
func heading(n *html.Node) string {
	for _, tag := range []atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6} {
		if h := findFirstByTag(n, tag); h != nil {
			if text := collectText(h); text != "" {
				return text
			}
		}
	}
	if a := findFirstByTag(n, atom.A); a != nil {
		if text := collectText(a); text != "" {
			return text
		}
	}
	return truncate(collectText(n), maxHeading)
}

// markdown sanitises the node HTML and converts it to markdown, falling
// back to plain text when conversion yields nothing.
func (e *Engine) markdown(n *html.Node, pageURL string) string {
	clean := e.policy.Sanitize(renderNode(n))
	var (
		md  string
		err error
	)
	if pageURL != "" {
		md, err = e.md.ConvertString(clean, converter.WithDomain(pageURL))
	} else {
		md, err = e.md.ConvertString(clean)
	}
	if err != nil || strings.TrimSpace(md) == "" {
		return collectText(n)
	}
	return strings.TrimSpace(md)
}

// links returns the anchors under n in document order, one per href.
func links(n *html.Node) []Link {
	var out []Link
	seen := map[string]bool{}
	goquery.NewDocumentFromNode(n).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || seen[href] {
			return
		}
		seen[href] = true
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text, _ = s.Attr("title")
		}
		out = append(out, Link{Text: text, Href: href})
	})
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
