// Package taxonomy groups posts by their taxonomy terms (tags, series, and
// whatever else config.toml wires up) the way the generator will.
package taxonomy

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"git.home.luguber.info/inful/blogkeeper/internal/frontmatter"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// Term is one taxonomy value and the posts carrying it.
type Term struct {
	Name     string   // first spelling seen in the corpus
	Variants []string // every distinct raw spelling, sorted
	Posts    []*post.Post
}

// Count returns the number of posts under the term.
func (t Term) Count() int { return len(t.Posts) }

// Index holds the materialized taxonomies, keyed by their plural name.
type Index struct {
	terms map[string][]Term
}

var foldCaser = cases.Fold()

// Build groups posts under each configured taxonomy. taxonomies maps
// singular to plural exactly like config.toml's [taxonomies] table; the
// plural is also the front matter key.
//
// Terms are folded case-insensitively, matching how the generator derives
// term URLs, so "KMP" and "kmp" land in one term with both spellings
// recorded.
func Build(posts []*post.Post, taxonomies map[string]string) *Index {
	ix := &Index{terms: map[string][]Term{}}

	for _, plural := range taxonomies {
		type bucket struct {
			name     string
			variants map[string]bool
			posts    []*post.Post
		}
		buckets := map[string]*bucket{}
		order := []string{}

		for _, p := range posts {
			for _, raw := range termValues(p, plural) {
				value := strings.TrimSpace(raw)
				if value == "" {
					continue
				}
				key := foldCaser.String(value)
				b, ok := buckets[key]
				if !ok {
					b = &bucket{name: value, variants: map[string]bool{}}
					buckets[key] = b
					order = append(order, key)
				}
				b.variants[value] = true
				b.posts = append(b.posts, p)
			}
		}

		terms := make([]Term, 0, len(order))
		for _, key := range order {
			b := buckets[key]
			variants := make([]string, 0, len(b.variants))
			for v := range b.variants {
				variants = append(variants, v)
			}
			sort.Strings(variants)

			if plural == "series" {
				// reading order: a series starts at its oldest entry
				sort.SliceStable(b.posts, func(i, j int) bool {
					return b.posts[i].Meta.Date.Before(b.posts[j].Meta.Date)
				})
			}
			terms = append(terms, Term{Name: b.name, Variants: variants, Posts: b.posts})
		}

		sort.SliceStable(terms, func(i, j int) bool {
			if len(terms[i].Posts) != len(terms[j].Posts) {
				return len(terms[i].Posts) > len(terms[j].Posts)
			}
			return foldCaser.String(terms[i].Name) < foldCaser.String(terms[j].Name)
		})
		ix.terms[plural] = terms
	}

	return ix
}

// termValues pulls a post's values for one taxonomy. tags and series have
// typed fields; anything else reads the raw front matter with the same
// scalar-or-list tolerance.
func termValues(p *post.Post, plural string) []string {
	switch plural {
	case "tags":
		return p.Meta.Tags
	case "series":
		return p.Meta.Series
	default:
		if values, ok := frontmatter.StringList(p.Fields, plural); ok {
			return values
		}
		return nil
	}
}

// Taxonomies returns the configured taxonomy plurals, sorted.
func (ix *Index) Taxonomies() []string {
	out := make([]string, 0, len(ix.terms))
	for plural := range ix.terms {
		out = append(out, plural)
	}
	sort.Strings(out)
	return out
}

// Terms returns a taxonomy's terms, most used first.
func (ix *Index) Terms(taxonomy string) []Term {
	return ix.terms[taxonomy]
}

// Term looks a term up by any of its spellings.
func (ix *Index) Term(taxonomy, name string) (Term, bool) {
	key := foldCaser.String(strings.TrimSpace(name))
	for _, t := range ix.terms[taxonomy] {
		if foldCaser.String(t.Name) == key {
			return t, true
		}
	}
	return Term{}, false
}

// Singletons returns terms used by exactly one post. A one-post series
// usually means a typo or an abandoned plan.
func (ix *Index) Singletons(taxonomy string) []Term {
	var out []Term
	for _, t := range ix.terms[taxonomy] {
		if t.Count() == 1 {
			out = append(out, t)
		}
	}
	return out
}

// MixedCase returns terms spelled more than one way across the corpus.
func (ix *Index) MixedCase(taxonomy string) []Term {
	var out []Term
	for _, t := range ix.terms[taxonomy] {
		if len(t.Variants) > 1 {
			out = append(out, t)
		}
	}
	return out
}

// TermCount returns how many distinct terms a taxonomy has.
func (ix *Index) TermCount(taxonomy string) int {
	return len(ix.terms[taxonomy])
}
