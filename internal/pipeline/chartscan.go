package pipeline

import (
	"encoding/json"
	stdhtml "html"
	"strings"

	"golang.org/x/net/html"
)

// mimeRendererTag is marimo's custom element carrying an inline rendering
// payload inside an HTML output.
const mimeRendererTag = "marimo-mime-renderer"

// Attributes on a mime-renderer element.
const (
	attrMime = "data-mime"
	attrData = "data-data"
)

// EmbeddedChart is one chart spec found inside an HTML fragment.
// Position is the element's index among all mime-renderer elements in
// document order, including non-chart ones.
type EmbeddedChart struct {
	Spec     map[string]any
	Position int
}

// FindEmbeddedCharts scans an HTML fragment for mime-renderer elements
// carrying vegalite payloads, in document order.
//
// Elements missing either attribute, carrying a non-vegalite media type,
// or holding an undecodable payload are skipped without aborting the
// scan. A fragment that cannot be parsed at all yields no charts; the
// caller then treats the fragment as opaque HTML.
func FindEmbeddedCharts(fragment string) []EmbeddedChart {
	root, _, err := parseFragment(fragment)
	if err != nil {
		return nil
	}

	var charts []EmbeddedChart
	position := 0

	walkElements(root, mimeRendererTag, func(n *html.Node) {
		index := position
		position++

		mime := elementAttr(n, attrMime)
		data := elementAttr(n, attrData)
		if mime == "" || data == "" {
			return
		}

		mime = strings.Trim(stdhtml.UnescapeString(mime), `"`)
		if !IsVegaLiteMime(mime) {
			return
		}

		spec, ok := decodePayload(data)
		if !ok {
			return
		}
		charts = append(charts, EmbeddedChart{Spec: spec, Position: index})
	})

	return charts
}

// StripEmbeddedCharts removes every mime-renderer element from the
// fragment while keeping surrounding prose (text around the element lives
// in sibling nodes, which removal does not touch). Returns the fragment
// unchanged if it cannot be parsed or re-rendered.
func StripEmbeddedCharts(fragment string) string {
	root, isFragment, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}

	var doomed []*html.Node
	walkElements(root, mimeRendererTag, func(n *html.Node) {
		doomed = append(doomed, n)
	})
	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}

	out, err := renderFragment(root, isFragment)
	if err != nil {
		return fragment
	}
	return out
}

// decodePayload unescapes a data-data attribute and parses it as JSON.
// The payload is an HTML-escaped JSON string: entity decoding first, then
// the string unescaped by hand (surrounding quotes stripped if present,
// \" to ", \n to newline, \\ to backslash).
func decodePayload(data string) (map[string]any, bool) {
	s := strings.TrimSpace(stdhtml.UnescapeString(data))
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\\`, `\`)

	var spec map[string]any
	if err := json.Unmarshal([]byte(s), &spec); err != nil {
		return nil, false
	}
	return spec, true
}

// walkElements visits every element named tag under root in document order.
func walkElements(root *html.Node, tag string, visit func(*html.Node)) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			visit(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// elementAttr returns the value of the named attribute, or "".
func elementAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
