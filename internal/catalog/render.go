package catalog

import (
	"html/template"
	"strings"
)

var lineBreaks = strings.NewReplacer("\r\n", "<br>", "\n", "<br>")

// RenderNote turns stored plain-text note content into HTML for display:
// the text is escaped and every line break becomes <br>. The stored content
// is never modified.
func RenderNote(content string) template.HTML {
	if content == "" {
		return ""
	}
	return template.HTML(lineBreaks.Replace(template.HTMLEscapeString(content)))
}
