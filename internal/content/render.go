// Package content turns user-written text into safe output.
package content

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldhtml.WithHardWraps(),
			goldhtml.WithXHTML(),
		),
	)
	ugc   = bluemonday.UGCPolicy()
	plain = bluemonday.StrictPolicy()
)

func init() {
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	ugc.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown renders a post or comment body to sanitized HTML. On a
// render failure the escaped source is returned.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "<p>" + html.EscapeString(source) + "</p>"
	}
	return string(ugc.SanitizeBytes(buf.Bytes()))
}

// Plain strips all markup from short fields such as names and bios and
// trims surrounding whitespace. Entities are unescaped so the result is
// the text as the user meant it.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(s)))
}
