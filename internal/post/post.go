// Package post models a single blog post: its front matter schema, body,
// and the identity (slug, section) it gets from its place in the content
// tree.
package post

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/frontmatter"
)

// Front matter keys with schema-level meaning. Anything else is passthrough.
const (
	KeyTitle   = "title"
	KeyDate    = "date"
	KeyDraft   = "draft"
	KeyHideToc = "hideToc"
	KeyTags    = "tags"
	KeySeries  = "series"
)

// Meta is the typed view of a post's front matter.
type Meta struct {
	Title   string
	Date    time.Time
	Draft   bool
	HideToc bool
	Tags    []string
	Series  []string
	Extra   map[string]any // passthrough keys outside the schema
}

// FieldError records a front matter key whose value has the wrong shape.
// Schema violations are soft: parsing continues and the linter reports them.
type FieldError struct {
	Key    string
	Reason string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// Post is one parsed content file.
type Post struct {
	Path         string // path as handed to Load/Parse
	RelativePath string // path relative to the content root (set by discovery)
	Section      string // directory under the content root ("" for root level)
	Slug         string

	Meta        Meta
	FieldErrors []FieldError

	Body           []byte
	Fields         map[string]any // raw front matter map
	HadFrontMatter bool
	Style          frontmatter.Style
}

// Load reads and parses a post file.
func Load(path string) (*Post, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read post %s: %w", path, err)
	}
	return Parse(path, content)
}

// Parse parses a post document.
//
// Structural failures (unclosed front matter, invalid YAML) return an error.
// Schema-level problems (wrong field types) are collected in FieldErrors so
// one bad key never hides the rest of the post.
func Parse(path string, content []byte) (*Post, error) {
	fields, body, had, style, err := frontmatter.Read(content)
	if err != nil {
		return nil, fmt.Errorf("parse front matter of %s: %w", path, err)
	}

	p := &Post{
		Path:           path,
		Slug:           SlugFromFilename(filepath.Base(path)),
		Body:           body,
		Fields:         fields,
		HadFrontMatter: had,
		Style:          style,
	}
	p.Meta, p.FieldErrors = MetaFromFields(fields)
	return p, nil
}

// MetaFromFields builds a typed Meta from a raw front matter map.
//
// Wrong shapes are reported per key; the zero value stands in so callers can
// keep working with the rest of the metadata.
func MetaFromFields(fields map[string]any) (Meta, []FieldError) {
	var meta Meta
	var errs []FieldError

	if frontmatter.Has(fields, KeyTitle) {
		if s, ok := frontmatter.String(fields, KeyTitle); ok {
			meta.Title = strings.TrimSpace(s)
		} else {
			errs = append(errs, FieldError{Key: KeyTitle, Reason: "must be a string"})
		}
	}

	if frontmatter.Has(fields, KeyDate) {
		if t, ok := frontmatter.Time(fields, KeyDate); ok {
			meta.Date = t
		} else {
			errs = append(errs, FieldError{Key: KeyDate, Reason: "must be a date (2006-01-02 or RFC3339)"})
		}
	}

	if frontmatter.Has(fields, KeyDraft) {
		if b, ok := frontmatter.Bool(fields, KeyDraft); ok {
			meta.Draft = b
		} else {
			errs = append(errs, FieldError{Key: KeyDraft, Reason: "must be a boolean"})
		}
	}

	if frontmatter.Has(fields, KeyHideToc) {
		if b, ok := frontmatter.Bool(fields, KeyHideToc); ok {
			meta.HideToc = b
		} else {
			errs = append(errs, FieldError{Key: KeyHideToc, Reason: "must be a boolean"})
		}
	}

	if frontmatter.Has(fields, KeyTags) {
		if list, ok := frontmatter.StringList(fields, KeyTags); ok {
			meta.Tags = list
		} else {
			errs = append(errs, FieldError{Key: KeyTags, Reason: "must be a list of strings"})
		}
	}

	if frontmatter.Has(fields, KeySeries) {
		if list, ok := frontmatter.StringList(fields, KeySeries); ok {
			meta.Series = list
		} else {
			errs = append(errs, FieldError{Key: KeySeries, Reason: "must be a string or a list of strings"})
		}
	}

	for k, v := range fields {
		switch k {
		case KeyTitle, KeyDate, KeyDraft, KeyHideToc, KeyTags, KeySeries:
		default:
			if meta.Extra == nil {
				meta.Extra = map[string]any{}
			}
			meta.Extra[k] = v
		}
	}

	return meta, errs
}

// Fields converts Meta back into a front matter map, merging passthrough
// keys. Schema keys always win over Extra shadows.
func (m Meta) Fields() map[string]any {
	fields := map[string]any{}
	for k, v := range m.Extra {
		fields[k] = v
	}

	if m.Title != "" {
		fields[KeyTitle] = m.Title
	}
	if !m.Date.IsZero() {
		fields[KeyDate] = m.Date
	}
	fields[KeyDraft] = m.Draft
	if m.HideToc {
		fields[KeyHideToc] = true
	}
	if m.Tags != nil {
		fields[KeyTags] = m.Tags
	}
	if len(m.Series) > 0 {
		fields[KeySeries] = m.Series
	}
	return fields
}

// Published reports whether the post is live (not a draft).
func (p *Post) Published() bool { return !p.Meta.Draft }

// Year returns the post's calendar year, or 0 when the date is unset.
func (p *Post) Year() int {
	if p.Meta.Date.IsZero() {
		return 0
	}
	return p.Meta.Date.Year()
}

// Render reassembles the document bytes from the current Fields and Body.
func (p *Post) Render() ([]byte, error) {
	return frontmatter.Write(p.Fields, p.Body, p.HadFrontMatter, p.Style)
}
