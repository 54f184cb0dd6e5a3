package backend

import (
	"html/template"

	"gitlab.com/golang-commonmark/markdown"
)

var markdownParser = markdown.New(markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

// renderMarkdown translates a changelog written in CommonMark Markdown to
// HTML. Raw HTML in the input is not passed through.
func renderMarkdown(input string) template.HTML {
	return template.HTML(markdownParser.RenderToString([]byte(input)))
}
