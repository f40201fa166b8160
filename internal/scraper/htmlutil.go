package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// The boards ship their listings inside server-rendered HTML. These helpers
// walk the parsed tree so the adapters can stay selector-light.

func parseHTML(body string) (*html.Node, error) {
	return html.Parse(strings.NewReader(body))
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// hasClass reports whether any class token of n contains substr.
func hasClass(n *html.Node, substr string) bool {
	for _, cls := range strings.Fields(attr(n, "class")) {
		if strings.Contains(cls, substr) {
			return true
		}
	}
	return false
}

// findAll collects element nodes matching pred, in document order.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && pred(node) {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// findFirst returns the first element matching pred, or nil.
func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	nodes := findAll(n, pred)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// textContent concatenates all text under n, whitespace-collapsed.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// blockText is like textContent but keeps line breaks between block-level
// children, which matters for multi-paragraph job descriptions.
func blockText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var lines []string
	var b strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(b.String()), " "); line != "" {
			lines = append(lines, line)
		}
		b.Reset()
	}
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			b.WriteString(" ")
			return
		}
		switch node.Data {
		case "p", "div", "li", "br", "ul", "ol", "h1", "h2", "h3", "h4":
			flush()
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		switch node.Data {
		case "p", "div", "li", "ul", "ol", "h1", "h2", "h3", "h4":
			flush()
		}
	}
	walk(n)
	flush()
	return strings.Join(lines, "\n")
}

// stripTags flattens an HTML fragment (e.g. a JSON-LD description) to text.
func stripTags(fragment string) string {
	node, err := parseHTML(fragment)
	if err != nil {
		return fragment
	}
	return blockText(node)
}
