// Package adf builds Atlassian Document Format nodes.
//
// ADF is a JSON tree, so nodes are plain maps and constructors exist for
// the shapes the conversion pipeline emits. The package covers the subset
// of the grammar the pipeline produces, not the full format.
package adf

// Node is one ADF content node.
type Node map[string]any

// Mark is an inline formatting mark attached to a text node.
type Mark map[string]any

// Document wraps body nodes into a complete ADF document (version 1).
func Document(content []Node) Node {
	if content == nil {
		content = []Node{}
	}
	return Node{
		"type":    "doc",
		"version": 1,
		"content": content,
	}
}

// Paragraph returns a paragraph wrapping a single verbatim text node.
func Paragraph(text string) Node {
	return ParagraphOf([]Node{Text(text)})
}

// ParagraphOf returns a paragraph with the given inline content.
func ParagraphOf(content []Node) Node {
	return Node{
		"type":    "paragraph",
		"content": content,
	}
}

// Text returns a text node with optional marks.
func Text(text string, marks ...Mark) Node {
	n := Node{
		"type": "text",
		"text": text,
	}
	if len(marks) > 0 {
		n["marks"] = marks
	}
	return n
}

// Heading returns a heading of the given level (1-6).
func Heading(level int, content []Node) Node {
	return Node{
		"type":    "heading",
		"attrs":   map[string]any{"level": level},
		"content": content,
	}
}

// CodeBlock returns a code block. Language may be empty.
func CodeBlock(language, text string) Node {
	n := Node{
		"type":    "codeBlock",
		"content": []Node{Text(text)},
	}
	if language != "" {
		n["attrs"] = map[string]any{"language": language}
	}
	return n
}

// Blockquote wraps block content in a quote.
func Blockquote(content []Node) Node {
	return Node{
		"type":    "blockquote",
		"content": content,
	}
}

// Rule returns a horizontal rule.
func Rule() Node {
	return Node{"type": "rule"}
}

// HardBreak returns an explicit line break inside a paragraph.
func HardBreak() Node {
	return Node{"type": "hardBreak"}
}

// MediaSingle returns a mediaSingle wrapping an uploaded file at its
// natural size.
func MediaSingle(fileID, collection string) Node {
	return mediaSingle(fileID, collection, 0)
}

// MediaSingleWithWidth returns a mediaSingle constrained to a pixel width.
func MediaSingleWithWidth(fileID, collection string, width int) Node {
	return mediaSingle(fileID, collection, width)
}

func mediaSingle(fileID, collection string, width int) Node {
	media := Node{
		"type": "media",
		"attrs": map[string]any{
			"type":       "file",
			"id":         fileID,
			"collection": collection,
		},
	}
	attrs := map[string]any{"layout": "center"}
	if width > 0 {
		attrs["width"] = width
		attrs["widthType"] = "pixel"
	}
	return Node{
		"type":    "mediaSingle",
		"attrs":   attrs,
		"content": []Node{media},
	}
}

// Mark constructors.

func StrongMark() Mark    { return Mark{"type": "strong"} }
func EmMark() Mark        { return Mark{"type": "em"} }
func CodeMark() Mark      { return Mark{"type": "code"} }
func StrikeMark() Mark    { return Mark{"type": "strike"} }
func UnderlineMark() Mark { return Mark{"type": "underline"} }

// LinkMark returns a link mark pointing at href.
func LinkMark(href string) Mark {
	return Mark{
		"type":  "link",
		"attrs": map[string]any{"href": href},
	}
}

// HeadingLevel returns the heading level of n, or 0 if n is not a heading.
func HeadingLevel(n Node) int {
	if n["type"] != "heading" {
		return 0
	}
	attrs, ok := n["attrs"].(map[string]any)
	if !ok {
		return 0
	}
	switch v := attrs["level"].(type) {
	case int:
		return v
	case float64:
		// Decoded from JSON.
		return int(v)
	}
	return 0
}

// TextContent concatenates the text of every direct text child of n.
func TextContent(n Node) string {
	content, ok := n["content"].([]Node)
	if !ok {
		return ""
	}
	var out string
	for _, c := range content {
		if c["type"] == "text" {
			if s, ok := c["text"].(string); ok {
				out += s
			}
		}
	}
	return out
}
