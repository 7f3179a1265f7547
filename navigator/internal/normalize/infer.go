package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/patootie/navigator/internal/resolve"
)

// infer derives the rules for doc: a title rule when the page has one, then
// either a repeated-item rule (list pages) or a content rule (article pages).
func (e *Engine) infer(doc *goquery.Document) ([]Rule, error) {
	root := doc.Nodes[0]
	body := findFirstByTag(root, atom.Body)
	if body == nil {
		return nil, fmt.Errorf("%w: no body", ErrNotCategorizable)
	}

	var rules []Rule
	if t := findFirstByTag(root, atom.Title); t != nil && collectText(t) != "" {
		rules = append(rules, Rule{Field: FieldTitle, Kind: KindCSS, Expr: "title"})
	} else if h := findFirstByTag(body, atom.H1); h != nil && collectText(h) != "" {
		rules = append(rules, Rule{Field: FieldTitle, Kind: KindCSS, Expr: "h1"})
	}

	if g := e.repeatedGroup(body); g != nil {
		return append(rules, Rule{Field: FieldItem, Kind: g.kind, Expr: g.expr}), nil
	}

	content := findContent(body, e.cfg.MinTextLen)
	if content == nil {
		if countLinks(body) == 0 {
			return nil, fmt.Errorf("%w: no content region and no links", ErrNotCategorizable)
		}
		content = body
	}
	kind, expr := selectorFor(content)
	return append(rules, Rule{Field: FieldContent, Kind: kind, Expr: expr}), nil
}

type group struct {
	kind  string
	expr  string
	score int
}

// repeatedGroup finds the largest set of same-signature siblings (same tag,
// same class attribute) where most members carry a link. Such groups are
// result lists, indexes and feeds. Paragraph runs of an article rarely link
// from every member and are left to the content rule.
func (e *Engine) repeatedGroup(body *html.Node) *group {
	var best *group

	var walk func(*html.Node)
	walk = func(parent *html.Node) {
		if parent.Type != html.ElementNode || isBoilerplate(parent) {
			return
		}

		buckets := map[string][]*html.Node{}
		var order []string
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || !isItemTag(c.DataAtom) {
				continue
			}
			sig := c.Data + "|" + attr(c, "class")
			if _, ok := buckets[sig]; !ok {
				order = append(order, sig)
			}
			buckets[sig] = append(buckets[sig], c)
		}

		for _, sig := range order {
			members := buckets[sig]
			if len(members) < e.cfg.MinItems {
				continue
			}
			linked, textLen := 0, 0
			for _, m := range members {
				if countLinks(m) > 0 {
					linked++
				}
				textLen += len(collectText(m))
			}
			if linked*10 < len(members)*6 || textLen < e.cfg.MinTextLen {
				continue
			}
			if textLen/len(members) < 8 {
				continue
			}
			if best == nil || textLen > best.score {
				kind, expr := itemSelector(parent, members[0])
				best = &group{kind: kind, expr: expr, score: textLen}
			}
		}

		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return best
}

func isItemTag(a atom.Atom) bool {
	switch a {
	case atom.Li, atom.Article, atom.Div, atom.Section, atom.Tr,
		atom.Dt, atom.Dd, atom.P, atom.H2, atom.H3, atom.Span, atom.Table:
		return true
	}
	return false
}

var (
	cssIdent = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)
	safeAttr = regexp.MustCompile(`^[^'"\[\]/]*$`)
)

// selectorFor builds a rule expression for one node: "#id" when the node
// has a usable id, its absolute XPath otherwise.
func selectorFor(n *html.Node) (kind, expr string) {
	if id := attr(n, "id"); cssIdent.MatchString(id) {
		return KindCSS, "#" + id
	}
	return KindXPath, pathOf(n)
}

// itemSelector builds the expression matching every sibling that shares
// member's tag and class attribute.
func itemSelector(parent, member *html.Node) (kind, expr string) {
	class := attr(member, "class")
	if id := attr(parent, "id"); cssIdent.MatchString(id) {
		sel := "#" + id + " > " + member.Data
		fields := strings.Fields(class)
		ok := true
		for _, f := range fields {
			if !cssIdent.MatchString(f) {
				ok = false
				break
			}
		}
		if ok {
			for _, f := range fields {
				sel += "." + f
			}
			return KindCSS, sel
		}
	}

	expr = pathOf(parent) + "/" + member.Data
	if class != "" {
		if !safeAttr.MatchString(class) {
			return KindXPath, expr
		}
		expr += "[@class='" + class + "']"
	}
	return KindXPath, expr
}

// countLinks counts anchors whose href the resolver can navigate.
func countLinks(n *html.Node) int {
	count := 0
	for _, a := range findAllByTag(n, atom.A) {
		if href := strings.TrimSpace(attr(a, "href")); resolve.IsNavigable(href) {
			count++
		}
	}
	return count
}
