package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// NewRenderer builds the preview renderer. GFM tables and strikethrough,
// footnotes, and typographic quotes match what the generator's theme
// produces; heading IDs are generated so in-page anchors resolve. Raw HTML
// passes through because posts embed iframes and styled images.
func NewRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)
}

// Render converts a post body to HTML.
func Render(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewRenderer().Convert(body, &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}
