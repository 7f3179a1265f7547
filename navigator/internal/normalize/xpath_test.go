package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const pathDoc = `<html><body>
<div><p>zero</p></div>
<div><p>one</p><p class="x">two</p><p>three</p></div>
</body></html>`

func parseDoc(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestPathOf_RoundTrips(t *testing.T) {
	doc := parseDoc(t, pathDoc)
	for _, p := range findAllByTag(doc, atom.P) {
		path := pathOf(p)
		got := evalXPath(doc, path)
		require.Len(t, got, 1, "path %s", path)
		assert.Same(t, p, got[0])
	}
}

func TestPathOf_Positions(t *testing.T) {
	doc := parseDoc(t, pathDoc)
	ps := findAllByTag(doc, atom.P)
	assert.Equal(t, "/html/body/div[1]/p", pathOf(ps[0]))
	assert.Equal(t, "/html/body/div[2]/p[3]", pathOf(ps[3]))
}

func TestEvalXPath_Predicates(t *testing.T) {
	doc := parseDoc(t, pathDoc)

	got := evalXPath(doc, "//p[@class='x']")
	require.Len(t, got, 1)
	assert.Equal(t, "two", collectText(got[0]))

	got = evalXPath(doc, "/html/body/div[2]/p")
	assert.Len(t, got, 3)

	got = evalXPath(doc, "//div/p")
	assert.Len(t, got, 4)

	assert.Empty(t, evalXPath(doc, "/html/body/section"))
}
