package post

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/frontmatter"
)

// ScaffoldOptions tunes a newly scaffolded post.
type ScaffoldOptions struct {
	Now     time.Time // zero means time.Now
	Tags    []string
	Series  string
	HideToc bool
}

// Scaffold produces the file name and document for a fresh post. New posts
// always start as drafts.
func Scaffold(title string, opts ScaffoldOptions) (string, []byte, error) {
	if title == "" {
		return "", nil, fmt.Errorf("scaffold post: title is required")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	tags := opts.Tags
	if tags == nil {
		tags = []string{}
	}

	fields := map[string]any{
		KeyTitle:   title,
		KeyDate:    now,
		KeyDraft:   true,
		KeyHideToc: opts.HideToc,
		KeyTags:    tags,
	}
	if opts.Series != "" {
		fields[KeySeries] = []string{opts.Series}
	}

	content, err := frontmatter.Write(fields, nil, true, frontmatter.Style{})
	if err != nil {
		return "", nil, fmt.Errorf("scaffold post %q: %w", title, err)
	}

	slug := Slugify(title)
	if slug == "" {
		return "", nil, fmt.Errorf("scaffold post: title %q has no sluggable characters", title)
	}
	return slug + ".md", content, nil
}
