package pipeline

import (
	"github.com/alnah/go-marimo2confluence/internal/adf"
)

// FirstHeadingText returns the text of the first level-1 heading among
// the assembled nodes, or "" if there is none. Placeholders are skipped:
// a chart is never a title.
func FirstHeadingText(nodes []Node) string {
	for _, n := range nodes {
		content, ok := n.(ContentNode)
		if !ok {
			continue
		}
		if adf.HeadingLevel(content.ADF) == 1 {
			return adf.TextContent(content.ADF)
		}
	}
	return ""
}

// RemoveLeadingHeading drops the first node when it is a level-1 heading.
// The page title renders as the H1, so a leading heading in the body
// would duplicate it. Idempotent: a list that no longer starts with a
// heading passes through unchanged.
func RemoveLeadingHeading(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nodes
	}
	if content, ok := nodes[0].(ContentNode); ok && adf.HeadingLevel(content.ADF) == 1 {
		return nodes[1:]
	}
	return nodes
}
