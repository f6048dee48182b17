package content

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// ParseFailure is a file whose front matter would not parse at all. A bad
// file never aborts corpus loading; the linter reports it.
type ParseFailure struct {
	File PageFile
	Err  error
}

// Corpus is the parsed content tree.
type Corpus struct {
	Root string

	posts    []*post.Post
	stubs    []PageFile
	failures []ParseFailure
}

// LoadCorpus discovers and parses everything under root.
func LoadCorpus(root string) (*Corpus, error) {
	files, err := NewDiscovery(root).Discover()
	if err != nil {
		return nil, err
	}
	return BuildCorpus(root, files)
}

// BuildCorpus parses already discovered files into a corpus.
func BuildCorpus(root string, files []PageFile) (*Corpus, error) {
	c := &Corpus{Root: root}

	for i := range files {
		f := files[i]
		if f.IsSectionStub {
			c.stubs = append(c.stubs, f)
			continue
		}
		if err := f.LoadContent(); err != nil {
			c.failures = append(c.failures, ParseFailure{File: f, Err: err})
			continue
		}

		p, err := post.Parse(f.Path, f.Content)
		if err != nil {
			slog.Debug("Post failed to parse", logfields.File(f.RelativePath), logfields.Error(err))
			c.failures = append(c.failures, ParseFailure{File: f, Err: err})
			continue
		}
		p.RelativePath = f.RelativePath
		p.Section = f.Section
		c.posts = append(c.posts, p)
	}

	sortPosts(c.posts)
	slog.Debug("Corpus loaded",
		logfields.Path(root),
		logfields.Count(len(c.posts)),
		slog.Int("failures", len(c.failures)))
	return c, nil
}

// sortPosts orders newest first; undated posts sink to the end, slug breaks
// ties so output is stable.
func sortPosts(posts []*post.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		di, dj := posts[i].Meta.Date, posts[j].Meta.Date
		switch {
		case di.IsZero() != dj.IsZero():
			return dj.IsZero()
		case !di.Equal(dj):
			return di.After(dj)
		default:
			return posts[i].Slug < posts[j].Slug
		}
	})
}

// Posts returns every parsed post, newest first.
func (c *Corpus) Posts() []*post.Post { return c.posts }

// Published returns the non-draft posts.
func (c *Corpus) Published() []*post.Post {
	var out []*post.Post
	for _, p := range c.posts {
		if p.Published() {
			out = append(out, p)
		}
	}
	return out
}

// Drafts returns the draft posts.
func (c *Corpus) Drafts() []*post.Post {
	var out []*post.Post
	for _, p := range c.posts {
		if !p.Published() {
			out = append(out, p)
		}
	}
	return out
}

// SectionStubs returns the _index.md style section pages.
func (c *Corpus) SectionStubs() []PageFile { return c.stubs }

// Failures returns files that would not parse.
func (c *Corpus) Failures() []ParseFailure { return c.failures }

// Len counts parsed posts.
func (c *Corpus) Len() int { return len(c.posts) }

// Find returns the post with the given slug, or nil.
func (c *Corpus) Find(slug string) *post.Post {
	for _, p := range c.posts {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

// ByYear groups posts by calendar year; undated posts group under 0.
func (c *Corpus) ByYear() map[int][]*post.Post {
	out := map[int][]*post.Post{}
	for _, p := range c.posts {
		out[p.Year()] = append(out[p.Year()], p)
	}
	return out
}

// Sections returns the distinct sections in sorted order.
func (c *Corpus) Sections() []string {
	seen := map[string]bool{}
	for _, p := range c.posts {
		seen[p.Section] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// DuplicateGroup is a set of posts that collide on identity.
type DuplicateGroup struct {
	Title string // title of the first colliding post
	Day   string // shared calendar day, YYYY-MM-DD
	Posts []*post.Post
}

var foldCaser = cases.Fold()

// duplicateKey is the post identity: case-folded trimmed title plus the
// calendar day. Posts missing either piece have no identity to collide on.
func duplicateKey(p *post.Post) (string, bool) {
	title := strings.TrimSpace(p.Meta.Title)
	if title == "" || p.Meta.Date.IsZero() {
		return "", false
	}
	return foldCaser.String(title) + "|" + p.Meta.Date.Format(time.DateOnly), true
}

// Duplicates returns groups of posts sharing a title and date. Two drafts
// of the same article committed side by side is the classic case.
func (c *Corpus) Duplicates() []DuplicateGroup {
	groups := map[string][]*post.Post{}
	order := []string{}
	for _, p := range c.posts {
		key, ok := duplicateKey(p)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	var out []DuplicateGroup
	for _, key := range order {
		posts := groups[key]
		if len(posts) < 2 {
			continue
		}
		out = append(out, DuplicateGroup{
			Title: posts[0].Meta.Title,
			Day:   posts[0].Meta.Date.Format(time.DateOnly),
			Posts: posts,
		})
	}
	return out
}
