// Package frontmatter implements the YAML front matter codec for blog posts.
//
// A post document is `---` delimited YAML followed by a Markdown body. The
// codec preserves the document's newline style so a parse/serialize round
// trip is byte-stable, which keeps diffs clean when the fixer rewrites files.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a front
// matter delimiter but never closed it.
var ErrMissingClosingDelimiter = errors.New("front matter opening delimiter found but closing delimiter is missing")

// Style captures formatting details needed for stable rewriting.
//
// It intentionally focuses on newline/trailing newline shape and does not
// attempt to preserve original YAML formatting.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Split separates YAML front matter (`---` delimited) from the Markdown body.
//
// If the document does not start with a delimiter, had is false and body is
// the full input.
func Split(content []byte) (raw []byte, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)

	nl := style.Newline
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}

	rawStart := len(open)
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(content[rawStart:], closeLine) {
		bodyStart := rawStart + len(closeLine)
		return []byte{}, content[bodyStart:], true, style, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[rawStart:], closeSeq)
	if idx < 0 {
		return nil, nil, false, style, ErrMissingClosingDelimiter
	}

	rawEnd := rawStart + idx + len(nl)
	bodyStart := rawStart + idx + len(closeSeq)
	return content[rawStart:rawEnd], content[bodyStart:], true, style, nil
}

// Join reassembles a document from raw front matter and body.
//
// If had is false, Join returns body as-is.
func Join(raw []byte, body []byte, had bool, style Style) []byte {
	if !had {
		return body
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	open := []byte("---" + nl)
	closing := []byte("---" + nl)

	out := make([]byte, 0, len(open)+len(raw)+len(closing)+len(body))
	out = append(out, open...)
	out = append(out, raw...)
	out = append(out, closing...)
	out = append(out, body...)
	return out
}

// Parse parses raw YAML front matter (without --- delimiters) into a map.
func Parse(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Read splits a document and parses its front matter in one step.
//
// Contract:
//   - No opening delimiter: had=false, body is the full input, fields empty.
//   - Opening delimiter without closing one: ErrMissingClosingDelimiter.
//   - Present but empty front matter: had=true, fields is an empty map.
func Read(content []byte) (fields map[string]any, body []byte, had bool, style Style, err error) {
	raw, body, had, style, err := Split(content)
	if err != nil {
		return nil, nil, false, style, err
	}

	fields, err = Parse(raw)
	if err != nil {
		return nil, nil, had, style, err
	}

	return fields, body, had, style, nil
}

// Write serializes front matter fields and joins them with body.
//
// If had is false, Write returns body as-is (even if fields is non-empty).
func Write(fields map[string]any, body []byte, had bool, style Style) ([]byte, error) {
	if !had {
		return body, nil
	}

	raw, err := Serialize(fields, style)
	if err != nil {
		return nil, err
	}

	return Join(raw, body, true, style), nil
}

func detectStyle(content []byte) Style {
	newline := "\n"
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			newline = "\r\n"
			break
		}
		if content[i] == '\n' {
			newline = "\n"
			break
		}
	}

	hasTrailingNewline := len(content) > 0 && (content[len(content)-1] == '\n')

	return Style{
		Newline:            newline,
		HasTrailingNewline: hasTrailingNewline,
	}
}
