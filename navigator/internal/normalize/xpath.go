package normalize

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// evalXPath evaluates the XPath subset that inferred rules are written in:
//   - /html/body/div[2]/ul        absolute path, positional predicates
//   - //article                   descendant anywhere
//   - /html/body/ul/li[@class='r'] attribute predicate on a step
func evalXPath(root *html.Node, expr string) []*html.Node {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "//"):
		return descendants(root, expr[2:])
	case strings.HasPrefix(expr, "/"):
		return followPath(root, expr[1:])
	default:
		return descendants(root, expr)
	}
}

// descendants finds elements matching the first step anywhere under root,
// then follows the remaining steps as children.
func descendants(root *html.Node, expr string) []*html.Node {
	steps := strings.SplitN(expr, "/", 2)
	st := parseStep(steps[0])

	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if st.matches(n) {
			matches = append(matches, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if len(steps) > 1 && steps[1] != "" {
		var out []*html.Node
		for _, m := range matches {
			out = append(out, followPath(m, steps[1])...)
		}
		return out
	}
	return matches
}

// followPath follows child steps a/b[2]/c from node.
func followPath(node *html.Node, path string) []*html.Node {
	current := []*html.Node{node}
	for _, raw := range strings.Split(path, "/") {
		if raw == "" {
			continue
		}
		st := parseStep(raw)
		var next []*html.Node
		for _, parent := range current {
			for c := parent.FirstChild; c != nil; c = c.NextSibling {
				if st.matches(c) {
					next = append(next, c)
				}
			}
		}
		current = next
	}
	return current
}

type step struct {
	tag       string
	attrName  string
	attrValue string
	position  int // 1-based, among same-tag siblings
}

// parseStep parses "div", "div[2]", "li[@class='x']" and "a[@href]".
func parseStep(raw string) step {
	idx := strings.IndexByte(raw, '[')
	if idx < 0 {
		return step{tag: raw}
	}
	st := step{tag: raw[:idx]}
	pred := strings.TrimSuffix(raw[idx+1:], "]")

	if n, err := strconv.Atoi(pred); err == nil {
		st.position = n
		return st
	}
	if strings.HasPrefix(pred, "@") {
		attr := pred[1:]
		if eq := strings.IndexByte(attr, '='); eq >= 0 {
			st.attrName = attr[:eq]
			st.attrValue = strings.Trim(attr[eq+1:], `'"`)
		} else {
			st.attrName = attr
		}
	}
	return st
}

func (s step) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "*" && n.Data != s.tag {
		return false
	}
	if s.attrName != "" {
		if s.attrValue != "" {
			return attr(n, s.attrName) == s.attrValue
		}
		return hasAttr(n, s.attrName)
	}
	if s.position > 0 {
		return sameTagPosition(n) == s.position
	}
	return true
}

// sameTagPosition returns the 1-based index of n among its same-tag siblings.
func sameTagPosition(n *html.Node) int {
	if n.Parent == nil {
		return 1
	}
	pos := 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			pos++
			if s == n {
				return pos
			}
		}
	}
	return 0
}

// sameTagCount returns how many element siblings of n (n included) share its tag.
func sameTagCount(n *html.Node) int {
	if n.Parent == nil {
		return 1
	}
	count := 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			count++
		}
	}
	return count
}

// pathOf returns the absolute XPath of n, with a positional predicate on
// every step that has same-tag siblings.
func pathOf(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		part := cur.Data
		if sameTagCount(cur) > 1 {
			part += "[" + strconv.Itoa(sameTagPosition(cur)) + "]"
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}
