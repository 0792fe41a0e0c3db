package fbplus

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseDocument parses forum markup. The html parser recovers from broken
// markup the way browsers do, so an error here means the input could not be
// read at all.
func parseDocument(text string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("bad html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// attr returns the trimmed attribute of the first element in sel.
func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return strings.TrimSpace(v)
}

// textWithBreaks returns the text below the first node in sel with <br>
// elements turned into newlines.
func textWithBreaks(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteString("\n")
		}
		for c := range n.ChildNodes() {
			walk(c)
		}
	}
	walk(sel.Get(0))
	return b.String()
}

// firstLine returns s up to, not including, the first line break.
func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
