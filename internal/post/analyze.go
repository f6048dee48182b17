package post

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// wordsPerMinute is the reading speed ReadingTime assumes.
const wordsPerMinute = 200

// WordCount counts whitespace-separated tokens of the Markdown source.
func (p *Post) WordCount() int {
	return len(strings.Fields(string(p.Body)))
}

// ReadingTime estimates minutes to read the post, rounding up. An empty
// body reads in zero minutes; anything else takes at least one.
func (p *Post) ReadingTime() int {
	words := p.WordCount()
	if words == 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Heading is one section heading of a post body.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Headings parses the body and returns its headings in document order.
// IDs are the anchors the HTML renderer assigns, so a table of contents
// built from them links into rendered output directly.
func (p *Post) Headings() []Heading {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	doc := md.Parser().Parse(text.NewReader(p.Body))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		headings = append(headings, Heading{
			Level: h.Level,
			Text:  nodeText(h, p.Body),
			ID:    headingID(h),
		})
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// headingID reads the id attribute the parser generated.
func headingID(h *ast.Heading) string {
	v, ok := h.AttributeString("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case []byte:
		return string(id)
	case string:
		return id
	}
	return ""
}

// nodeText flattens the literal text under a node.
func nodeText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
