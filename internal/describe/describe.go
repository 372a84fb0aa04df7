// Package describe renders a short markdown blurb (a repository's
// .git/description, rendered as-is: git's default placeholder text is not
// filtered out) down to plain text suitable for a terminal banner, the way a CLI might pretty-print
// a project's README summary without pulling in a full markdown renderer.
package describe

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RenderPlain walks markdown's AST and concatenates its text nodes,
// collapsing formatting (emphasis, links, headings) down to bare words
// separated by single spaces, with a single line break (no blank line)
// between block-level elements. Returns "" if markdown is empty or fails to parse into any
// text content.
func RenderPlain(markdown []byte) string {
	if len(strings.TrimSpace(string(markdown))) == 0 {
		return ""
	}

	src := text.NewReader(markdown)
	doc := goldmark.New().Parser().Parse(src)

	var b strings.Builder
	firstInBlock := true
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindText:
			t := n.(*ast.Text)
			if !firstInBlock && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(t.Value(markdown))
			firstInBlock = false
		case ast.KindParagraph, ast.KindHeading, ast.KindListItem:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			firstInBlock = true
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(b.String())
}
