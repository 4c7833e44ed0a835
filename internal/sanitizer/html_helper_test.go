package sanitizer_test

import (
	"strings"

	"golang.org/x/net/html"
)

// renderHtmlForTest serializes an html.Node to its HTML string representation.
func renderHtmlForTest(node *html.Node) string {
	if node == nil {
		return ""
	}
	var buf strings.Builder
	html.Render(&buf, node)
	return buf.String()
}
