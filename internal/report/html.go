package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// htmlTemplate is the single hardcoded stylesheet every issue ships with.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body {
    font-family: Arial, sans-serif;
    line-height: 1.6;
    color: #333;
    max-width: 800px;
    margin: 0 auto;
    padding: 20px;
}
h1, h2, h3 { color: #2c3e50; }
h1 { border-bottom: 2px solid #eee; padding-bottom: 10px; }
h2 { border-bottom: 1px solid #eee; padding-bottom: 5px; margin-top: 30px; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
a { color: #3498db; text-decoration: none; }
a:hover { text-decoration: underline; }
</style>
</head>
<body>
%s
</body>
</html>
`

// RenderHTML converts newsletter markdown into a styled HTML document. If
// the renderer fails, a degraded substitution path takes over; it escapes
// first so headline text cannot inject markup.
func RenderHTML(md, title string) string {
	var buf bytes.Buffer
	body := ""
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		body = degradedHTML(md)
	} else {
		body = buf.String()
	}
	return fmt.Sprintf(htmlTemplate, html.EscapeString(title), body)
}

// degradedHTML handles headings and paragraph breaks only.
func degradedHTML(md string) string {
	var b strings.Builder
	paragraphOpen := false
	closeParagraph := func() {
		if paragraphOpen {
			b.WriteString("</p>\n")
			paragraphOpen = false
		}
	}

	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		escaped := html.EscapeString(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
		switch {
		case trimmed == "":
			closeParagraph()
		case strings.HasPrefix(trimmed, "###"):
			closeParagraph()
			b.WriteString("<h3>" + escaped + "</h3>\n")
		case strings.HasPrefix(trimmed, "##"):
			closeParagraph()
			b.WriteString("<h2>" + escaped + "</h2>\n")
		case strings.HasPrefix(trimmed, "#"):
			closeParagraph()
			b.WriteString("<h1>" + escaped + "</h1>\n")
		default:
			if !paragraphOpen {
				b.WriteString("<p>")
				paragraphOpen = true
			} else {
				b.WriteString(" ")
			}
			b.WriteString(html.EscapeString(trimmed))
		}
	}
	closeParagraph()
	return b.String()
}
