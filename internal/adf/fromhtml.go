package adf

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sanitizer strips scripts, styles, and event handlers before conversion.
// The UGC policy covers the structural elements notebook outputs use;
// class survives on code so fence languages can be recovered.
var sanitizer = newSanitizer()

func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("code")
	return p
}

// FromHTML converts an HTML fragment into ADF body nodes.
//
// The conversion is total: malformed HTML degrades to whatever the parser
// recovers, and an unparseable fragment yields no nodes rather than an
// error. Elements outside the supported subset are recursed into so their
// text is not lost.
func FromHTML(fragment string) []Node {
	clean := sanitizer.Sanitize(fragment)
	if strings.TrimSpace(clean) == "" {
		return nil
	}

	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	parsed, err := html.ParseFragment(strings.NewReader(clean), context)
	if err != nil {
		return nil
	}

	return convertBlocks(parsed)
}

// convertBlocks converts a sibling sequence into block nodes. Inline
// content between blocks accumulates into implicit paragraphs.
func convertBlocks(siblings []*html.Node) []Node {
	var blocks []Node
	var inline []Node

	flush := func() {
		if len(inline) > 0 {
			blocks = append(blocks, ParagraphOf(inline))
			inline = nil
		}
	}

	for _, n := range siblings {
		switch n.Type {
		case html.TextNode:
			inline = appendText(inline, n.Data, nil)
			continue
		case html.ElementNode:
			// Handled below.
		default:
			continue
		}

		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			flush()
			level := int(n.Data[1] - '0')
			content := convertInline(n, nil)
			if len(content) > 0 {
				blocks = append(blocks, Heading(level, content))
			}
		case atom.P:
			flush()
			if content := convertInline(n, nil); len(content) > 0 {
				blocks = append(blocks, ParagraphOf(content))
			}
		case atom.Ul:
			flush()
			if list := convertList(n, "bulletList"); list != nil {
				blocks = append(blocks, list)
			}
		case atom.Ol:
			flush()
			if list := convertList(n, "orderedList"); list != nil {
				blocks = append(blocks, list)
			}
		case atom.Pre:
			flush()
			blocks = append(blocks, convertPre(n))
		case atom.Blockquote:
			flush()
			if content := convertBlocks(children(n)); len(content) > 0 {
				blocks = append(blocks, Blockquote(content))
			}
		case atom.Hr:
			flush()
			blocks = append(blocks, Rule())
		case atom.Table:
			flush()
			if table := convertTable(n); table != nil {
				blocks = append(blocks, table)
			}
		case atom.Div, atom.Section, atom.Article, atom.Main, atom.Header, atom.Footer, atom.Aside, atom.Figure:
			flush()
			blocks = append(blocks, convertBlocks(children(n))...)
		case atom.Br:
			inline = append(inline, HardBreak())
		default:
			// Inline element (span, strong, a, ...) at block level.
			inline = append(inline, convertInline(n, nil)...)
		}
	}

	flush()
	return blocks
}

// convertInline converts the children of n into text nodes, threading the
// active mark set down through nested formatting elements.
func convertInline(n *html.Node, marks []Mark) []Node {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			out = appendText(out, c.Data, marks)
		case html.ElementNode:
			switch c.DataAtom {
			case atom.Br:
				out = append(out, HardBreak())
			case atom.Strong, atom.B:
				out = append(out, convertInline(c, withMark(marks, StrongMark()))...)
			case atom.Em, atom.I:
				out = append(out, convertInline(c, withMark(marks, EmMark()))...)
			case atom.Code:
				out = append(out, convertInline(c, withMark(marks, CodeMark()))...)
			case atom.S, atom.Del:
				out = append(out, convertInline(c, withMark(marks, StrikeMark()))...)
			case atom.U:
				out = append(out, convertInline(c, withMark(marks, UnderlineMark()))...)
			case atom.A:
				if href := attrVal(c, "href"); href != "" {
					out = append(out, convertInline(c, withMark(marks, LinkMark(href)))...)
				} else {
					out = append(out, convertInline(c, marks)...)
				}
			default:
				out = append(out, convertInline(c, marks)...)
			}
		}
	}
	return out
}

// withMark returns a fresh mark slice extended with m. Copying keeps
// sibling branches from sharing a backing array.
func withMark(marks []Mark, m Mark) []Mark {
	out := make([]Mark, len(marks)+1)
	copy(out, marks)
	out[len(marks)] = m
	return out
}

// appendText collapses whitespace and appends a text node, dropping runs
// that collapse to nothing unless they separate existing content.
func appendText(out []Node, text string, marks []Mark) []Node {
	collapsed := collapseSpace(text)
	if collapsed == "" {
		return out
	}
	if collapsed == " " && len(out) == 0 {
		return out
	}
	return append(out, Text(collapsed, marks...))
}

// collapseSpace folds runs of whitespace to single spaces, keeping one
// leading/trailing space so words split across nodes do not fuse.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// convertList converts ul/ol into a list node of the given ADF type.
func convertList(n *html.Node, listType string) Node {
	var items []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		content := convertListItem(c)
		if len(content) == 0 {
			continue
		}
		items = append(items, Node{
			"type":    "listItem",
			"content": content,
		})
	}
	if len(items) == 0 {
		return nil
	}
	return Node{
		"type":    listType,
		"content": items,
	}
}

// convertListItem converts li children: inline runs become a paragraph,
// nested lists stay siblings of it.
func convertListItem(li *html.Node) []Node {
	var blocks []Node
	var inline []Node

	flush := func() {
		if len(inline) > 0 {
			blocks = append(blocks, ParagraphOf(inline))
			inline = nil
		}
	}

	for c := li.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			inline = appendText(inline, c.Data, nil)
		case c.Type != html.ElementNode:
			// Skip comments.
		case c.DataAtom == atom.Ul:
			flush()
			if list := convertList(c, "bulletList"); list != nil {
				blocks = append(blocks, list)
			}
		case c.DataAtom == atom.Ol:
			flush()
			if list := convertList(c, "orderedList"); list != nil {
				blocks = append(blocks, list)
			}
		case c.DataAtom == atom.P:
			flush()
			if content := convertInline(c, nil); len(content) > 0 {
				blocks = append(blocks, ParagraphOf(content))
			}
		default:
			inline = append(inline, convertInline(c, nil)...)
		}
	}

	flush()
	return blocks
}

// convertPre converts a pre block into an ADF code block. The language
// comes from a "language-*" class on the inner code element, goldmark's
// fence output shape.
func convertPre(pre *html.Node) Node {
	language := ""
	source := pre
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			source = c
			for _, class := range strings.Fields(attrVal(c, "class")) {
				if lang, ok := strings.CutPrefix(class, "language-"); ok {
					language = lang
					break
				}
			}
			break
		}
	}
	text := strings.TrimSuffix(rawText(source), "\n")
	return CodeBlock(language, text)
}

// convertTable converts an HTML table with header and data cells.
func convertTable(table *html.Node) Node {
	var rows []Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				if row := convertTableRow(c); row != nil {
					rows = append(rows, row)
				}
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(table)
	if len(rows) == 0 {
		return nil
	}
	return Node{
		"type":    "table",
		"content": rows,
	}
}

func convertTableRow(tr *html.Node) Node {
	var cells []Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		var cellType string
		switch c.DataAtom {
		case atom.Th:
			cellType = "tableHeader"
		case atom.Td:
			cellType = "tableCell"
		default:
			continue
		}
		content := convertInline(c, nil)
		var body []Node
		if len(content) > 0 {
			body = []Node{ParagraphOf(content)}
		} else {
			body = []Node{ParagraphOf([]Node{})}
		}
		cells = append(cells, Node{
			"type":    cellType,
			"content": body,
		})
	}
	if len(cells) == 0 {
		return nil
	}
	return Node{
		"type":    "tableRow",
		"content": cells,
	}
}

// children collects the child nodes of n into a slice.
func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// rawText concatenates text descendants without whitespace collapsing.
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// attrVal returns the value of the named attribute, or "".
func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
