package reporting

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// OutlineLink is one navigation link lifted from a region's captured
// markup.
type OutlineLink struct {
	Text string
	Href string
}

// ParseOutline extracts the anchor links from a region's outer HTML, in
// document order. Anchors without an href and empty-text anchors are
// dropped; nested markup inside an anchor collapses to its text.
func ParseOutline(outerHTML string) ([]OutlineLink, error) {
	root, err := html.Parse(strings.NewReader(outerHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse region markup: %w", err)
	}

	var links []OutlineLink
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attrVal(n, "href")
			text := strings.Join(strings.Fields(nodeText(n)), " ")
			if href != "" && text != "" {
				links = append(links, OutlineLink{Text: text, Href: href})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return links, nil
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
		b.WriteByte(' ')
	}
	return b.String()
}
