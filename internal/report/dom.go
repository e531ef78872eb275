package report

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	apperrors "eduaudit/internal/errors"
)

func parseDocument(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, apperrors.NewUpstreamFormatError("parse html", err)
	}
	return doc, nil
}

func root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// following returns the nodes after start in document order that satisfy
// match. Descendants of start come after it.
func following(start *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	seen := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == start {
			seen = true
		} else if seen && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root(start))
	return out
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// siblingText is the text right after n, such as the value following a
// <label>.
func siblingText(n *html.Node) string {
	if n.NextSibling == nil {
		return ""
	}
	return nodeText(n.NextSibling)
}
