// Package markdown analyzes and renders post bodies. Extraction walks the
// Goldmark AST; raw HTML embedded in posts (video iframes, styled images)
// is tokenized separately so its targets are not lost to the Markdown
// grammar.
package markdown

import (
	"bytes"
	"sort"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	xhtml "golang.org/x/net/html"
)

// ExtractLinks parses a Markdown body (front matter already removed) and
// returns every link-like construct: inline links, images, autolinks,
// reference definitions, and href/src targets inside embedded HTML.
func ExtractLinks(body []byte) []Link {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	links := make([]Link, 0)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, Link{Kind: LinkKindAuto, Destination: string(node.URL(body))})
		case *gmast.Image:
			links = append(links, Link{Kind: LinkKindImage, Destination: string(node.Destination)})
		case *gmast.Link:
			// reference-style links arrive resolved, with a destination
			links = append(links, Link{Kind: LinkKindInline, Destination: string(node.Destination)})
		case *gmast.RawHTML:
			links = append(links, htmlLinks(segmentsText(node.Segments, body))...)
		case *gmast.HTMLBlock:
			links = append(links, htmlLinks(blockText(node, body))...)
		}
		return gmast.WalkContinue, nil
	})

	// Reference definitions live in the parse context, not the AST.
	refs := ctx.References()
	sort.Slice(refs, func(i, j int) bool {
		return string(refs[i].Label()) < string(refs[j].Label())
	})
	for _, ref := range refs {
		links = append(links, Link{Kind: LinkKindReferenceDefinition, Destination: string(ref.Destination())})
	}

	return links
}

func segmentsText(segments *text.Segments, source []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < segments.Len(); i++ {
		buf.Write(segments.At(i).Value(source))
	}
	return buf.Bytes()
}

func blockText(block *gmast.HTMLBlock, source []byte) []byte {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		buf.Write(lines.At(i).Value(source))
	}
	if block.HasClosure() {
		buf.Write(block.ClosureLine.Value(source))
	}
	return buf.Bytes()
}

// htmlLinks tokenizes an HTML fragment and collects href and src values.
func htmlLinks(fragment []byte) []Link {
	if len(fragment) == 0 {
		return nil
	}

	var links []Link
	tz := xhtml.NewTokenizer(bytes.NewReader(fragment))
	for {
		tt := tz.Next()
		if tt == xhtml.ErrorToken {
			return links
		}
		if tt != xhtml.StartTagToken && tt != xhtml.SelfClosingTagToken {
			continue
		}

		_, hasAttr := tz.TagName()
		for hasAttr {
			var key, val []byte
			key, val, hasAttr = tz.TagAttr()
			switch string(key) {
			case "href", "src":
				if len(val) > 0 {
					links = append(links, Link{Kind: LinkKindHTML, Destination: string(val)})
				}
			}
		}
	}
}
