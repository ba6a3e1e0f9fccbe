// Package deliver implements the deliver stage (C6): render a plain-text
// summary into deterministic HTML and send it over SMTP. The renderer has
// no equivalent in the retrieval pack or common ecosystem libraries (it is
// not Markdown, just a fixed line grammar), so it is hand written against
// the standard library's html.EscapeString, as recorded in DESIGN.md.
package deliver

import (
	"html"
	"strings"
)

// RenderHTML converts plain text to HTML per §4.6's deterministic
// line-by-line grammar:
//   - blank lines separate paragraphs
//   - lines starting with "#" or "##" become headings
//   - lines starting with "-" or "*" become list items, grouped into a
//     single <ul> bounded by surrounding non-list lines
//   - every other non-blank line becomes its own paragraph
//   - all text segments are HTML-escaped
//   - an open list is closed at end-of-input
func RenderHTML(body string) string {
	lines := strings.Split(body, "\n")

	var b strings.Builder
	inList := false

	closeList := func() {
		if inList {
			b.WriteString("</ul>")
			inList = false
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			closeList()
		case strings.HasPrefix(trimmed, "##"):
			closeList()
			b.WriteString("<h2>")
			b.WriteString(html.EscapeString(strings.TrimSpace(trimmed[2:])))
			b.WriteString("</h2>")
		case strings.HasPrefix(trimmed, "#"):
			closeList()
			b.WriteString("<h1>")
			b.WriteString(html.EscapeString(strings.TrimSpace(trimmed[1:])))
			b.WriteString("</h1>")
		case strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*"):
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			item := strings.TrimSpace(trimmed[1:])
			b.WriteString("<li>")
			b.WriteString(html.EscapeString(item))
			b.WriteString("</li>")
		default:
			closeList()
			b.WriteString("<p>")
			b.WriteString(html.EscapeString(trimmed))
			b.WriteString("</p>")
		}
	}

	closeList()
	return b.String()
}
