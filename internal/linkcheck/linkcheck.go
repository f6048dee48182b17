// Package linkcheck verifies the links a blog's posts point at: external
// URLs over HTTP, internal ones against the site's own routes. Results are
// cached so repeated runs stay cheap, and broken links can be published to
// NATS for downstream handling.
package linkcheck

import (
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/markdown"
)

// Ref is one distinct link destination and the posts that carry it.
type Ref struct {
	// URL is the checkable form: absolute for external links, a rooted
	// site path for internal ones.
	URL      string
	Raw      string
	Internal bool
	Sources  []string
}

// Collect walks every post in the corpus and returns its distinct link
// destinations, sorted by URL. baseURL marks which absolute URLs count as
// internal; it may be empty.
func Collect(corpus *content.Corpus, baseURL string) []Ref {
	var baseHost string
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			baseHost = strings.ToLower(u.Host)
		}
	}

	byURL := map[string]*Ref{}
	var order []string

	for _, p := range corpus.Posts() {
		source := filepath.ToSlash(p.RelativePath)
		for _, link := range markdown.ExtractLinks(p.Body) {
			ref, ok := classify(link.Destination, source, baseHost)
			if !ok {
				continue
			}
			existing, seen := byURL[ref.URL]
			if !seen {
				byURL[ref.URL] = &ref
				order = append(order, ref.URL)
				existing = byURL[ref.URL]
			}
			if !containsString(existing.Sources, source) {
				existing.Sources = append(existing.Sources, source)
			}
		}
	}

	sort.Strings(order)
	out := make([]Ref, 0, len(order))
	for _, u := range order {
		out = append(out, *byURL[u])
	}
	return out
}

// classify decides whether a destination is checkable and how. Fragments,
// mail and phone links are nobody's to verify.
func classify(dest, sourceRel, baseHost string) (Ref, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") {
		return Ref{}, false
	}

	if strings.HasPrefix(dest, "//") {
		return Ref{URL: "https:" + stripFragment(dest), Raw: dest}, true
	}

	if u, err := url.Parse(dest); err == nil && u.Scheme != "" {
		switch u.Scheme {
		case "http", "https":
			if baseHost != "" && strings.ToLower(u.Host) == baseHost {
				return Ref{URL: rootedPath(u.Path), Raw: dest, Internal: true}, true
			}
			u.Fragment = ""
			return Ref{URL: u.String(), Raw: dest}, true
		default:
			// mailto:, tel:, xmpp:, ...
			return Ref{}, false
		}
	}

	clean := stripFragment(dest)
	if clean == "" {
		return Ref{}, false
	}
	if strings.HasPrefix(clean, "/") {
		return Ref{URL: rootedPath(clean), Raw: dest, Internal: true}, true
	}
	resolved := path.Join("/", path.Dir(sourceRel), clean)
	return Ref{URL: resolved, Raw: dest, Internal: true}, true
}

func stripFragment(dest string) string {
	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		return dest[:i]
	}
	return dest
}

func rootedPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
