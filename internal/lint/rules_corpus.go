package lint

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/markdown"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

// DuplicatePostsRule flags posts sharing a title and a calendar day. The
// generator happily builds both, leaving two near-identical entries in the
// archive and feed.
type DuplicatePostsRule struct{}

func (r *DuplicatePostsRule) Name() string { return "duplicate-posts" }

func (r *DuplicatePostsRule) CheckCorpus(cx *Context) []Issue {
	if cx.Corpus == nil {
		return nil
	}

	var issues []Issue
	for _, group := range cx.Corpus.Duplicates() {
		for i, p := range group.Posts {
			others := make([]string, 0, len(group.Posts)-1)
			for j, other := range group.Posts {
				if j != i {
					others = append(others, filepath.Base(other.Path))
				}
			}
			issues = append(issues, Issue{
				FilePath:    p.Path,
				Severity:    SeverityError,
				Rule:        r.Name(),
				Message:     fmt.Sprintf("Duplicate of %s: same title %q on %s", strings.Join(others, ", "), group.Title, group.Day),
				Explanation: "Two posts with the same title and date publish side by side; usually one is a stale copy.",
				Fix:         "Delete or retitle one of the files",
				Line:        1,
			})
		}
	}
	return issues
}

// TaxonomyCasingRule flags terms spelled with inconsistent casing across
// posts.
type TaxonomyCasingRule struct{}

func (r *TaxonomyCasingRule) Name() string { return "taxonomy-casing" }

func (r *TaxonomyCasingRule) CheckCorpus(cx *Context) []Issue {
	if cx.Taxonomy == nil {
		return nil
	}

	var issues []Issue
	for _, plural := range cx.Taxonomy.Taxonomies() {
		for _, term := range cx.Taxonomy.MixedCase(plural) {
			file := ""
			if len(term.Posts) > 0 {
				file = term.Posts[0].Path
			}
			issues = append(issues, Issue{
				FilePath:    file,
				Severity:    SeverityWarning,
				Rule:        r.Name(),
				Message:     fmt.Sprintf("%s %q is also spelled %s", termLabel(plural), term.Name, quoteVariants(term, term.Name)),
				Explanation: "The generator folds these onto one page, but shows whichever spelling it met first.",
				Fix:         fmt.Sprintf("Pick one spelling of %q and use it everywhere", term.Name),
			})
		}
	}
	return issues
}

func termLabel(plural string) string {
	switch plural {
	case "tags":
		return "Tag"
	case "series":
		return "Series"
	default:
		return "Term"
	}
}

func quoteVariants(term taxonomy.Term, canonical string) string {
	var quoted []string
	for _, v := range term.Variants {
		if v != canonical {
			quoted = append(quoted, fmt.Sprintf("%q", v))
		}
	}
	return strings.Join(quoted, ", ")
}

// SeriesSingletonRule flags series containing a single post.
type SeriesSingletonRule struct{}

func (r *SeriesSingletonRule) Name() string { return "series-singleton" }

func (r *SeriesSingletonRule) CheckCorpus(cx *Context) []Issue {
	if cx.Taxonomy == nil {
		return nil
	}

	var issues []Issue
	for _, term := range cx.Taxonomy.Singletons("series") {
		p := term.Posts[0]
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityWarning,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("Series %q has only this post", term.Name),
			Explanation: "A one-post series renders a navigation box pointing nowhere. It is often a typo for an existing series.",
			Fix:         "Add the missing parts, fix the series name, or drop the series key",
		})
	}
	return issues
}

// InternalLinksRule resolves site-internal links against the corpus and the
// taxonomy, catching references to posts and terms that do not exist.
type InternalLinksRule struct{}

func (r *InternalLinksRule) Name() string { return "internal-links" }

func (r *InternalLinksRule) CheckCorpus(cx *Context) []Issue {
	if cx.Corpus == nil {
		return nil
	}

	relFiles := map[string]bool{}
	for _, p := range cx.Corpus.Posts() {
		relFiles[filepath.ToSlash(p.RelativePath)] = true
	}
	for _, stub := range cx.Corpus.SectionStubs() {
		relFiles[filepath.ToSlash(stub.RelativePath)] = true
	}

	var issues []Issue
	for _, p := range cx.Corpus.Posts() {
		for _, link := range markdown.ExtractLinks(p.Body) {
			dest := strings.TrimSpace(link.Destination)
			if !internalDestination(dest) {
				continue
			}
			if issue, broken := r.resolve(cx, relFiles, p, dest); broken {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

// internalDestination reports whether a link destination stays on this
// site. Schemes, protocol-relative URLs and bare fragments are not ours to
// judge here.
func internalDestination(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "//") {
		return false
	}
	if strings.Contains(dest, "://") {
		return false
	}
	if i := strings.Index(dest, ":"); i > 0 && !strings.Contains(dest[:i], "/") {
		// mailto:, tel:, and friends
		return false
	}
	return true
}

func (r *InternalLinksRule) resolve(cx *Context, relFiles map[string]bool, p *post.Post, dest string) (Issue, bool) {
	if i := strings.IndexAny(dest, "#?"); i >= 0 {
		dest = dest[:i]
	}
	if dest == "" {
		return Issue{}, false
	}

	broken := func(msg, fix string) (Issue, bool) {
		return Issue{
			FilePath:    p.Path,
			Severity:    SeverityWarning,
			Rule:        r.Name(),
			Message:     msg,
			Explanation: "Readers following this link get a 404 on the published site.",
			Fix:         fix,
		}, true
	}

	if strings.HasPrefix(dest, "/") {
		segments := strings.Split(strings.Trim(dest, "/"), "/")
		if len(segments) != 2 {
			return Issue{}, false
		}
		head, tail := segments[0], segments[1]

		if head == p.Section || head == "posts" {
			if cx.Corpus.Find(tail) == nil {
				return broken(
					fmt.Sprintf("Link to unknown post %s", dest),
					"Point the link at an existing post slug")
			}
			return Issue{}, false
		}
		if cx.Taxonomy != nil {
			for _, plural := range cx.Taxonomy.Taxonomies() {
				if head != plural {
					continue
				}
				if !termRouteExists(cx.Taxonomy, plural, tail) {
					return broken(
						fmt.Sprintf("Link to unknown %s page %s", termLabel(plural), dest),
						fmt.Sprintf("Check the %s spelling against the posts that should carry it", termLabel(plural)))
				}
				return Issue{}, false
			}
		}
		return Issue{}, false
	}

	lower := strings.ToLower(dest)
	if !strings.HasSuffix(lower, ".md") && !strings.HasSuffix(lower, ".markdown") {
		return Issue{}, false
	}
	target := path.Clean(path.Join(path.Dir(filepath.ToSlash(p.RelativePath)), dest))
	if strings.HasPrefix(target, "../") {
		return Issue{}, false
	}
	if !relFiles[target] {
		return broken(
			fmt.Sprintf("Relative link target %s does not exist", dest),
			"Fix the path or link by slug instead")
	}
	return Issue{}, false
}

func termRouteExists(ix *taxonomy.Index, plural, segment string) bool {
	for _, term := range ix.Terms(plural) {
		if post.Slugify(term.Name) == segment {
			return true
		}
	}
	return false
}

// StaleDraftsRule surfaces drafts nobody has touched in a long time.
type StaleDraftsRule struct {
	MaxAge time.Duration
}

func (r *StaleDraftsRule) Name() string { return "stale-drafts" }

func (r *StaleDraftsRule) CheckCorpus(cx *Context) []Issue {
	if cx.Corpus == nil {
		return nil
	}
	maxAge := r.MaxAge
	if maxAge == 0 {
		maxAge = DefaultStaleDraftAge
	}
	now := cx.Now
	if now.IsZero() {
		now = time.Now()
	}

	var issues []Issue
	for _, p := range cx.Corpus.Drafts() {
		touched := p.Meta.Date
		if cx.Git != nil {
			if when, found, err := cx.Git.LastModified(p.Path); err == nil && found {
				touched = when
			}
		}
		if touched.IsZero() {
			continue
		}
		age := now.Sub(touched)
		if age <= maxAge {
			continue
		}
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityInfo,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("Draft untouched for %d days", int(age.Hours()/24)),
			Explanation: "Old drafts pile up and make the real work-in-progress hard to spot.",
			Fix:         "Finish it, or delete it",
		})
	}
	return issues
}

// SiteConfigRule folds config.toml problems into the lint report so one run
// covers the whole repository.
type SiteConfigRule struct{}

func (r *SiteConfigRule) Name() string { return "site-config" }

func (r *SiteConfigRule) CheckCorpus(cx *Context) []Issue {
	if cx.SiteErr != nil {
		return []Issue{{
			FilePath:    cx.SitePath,
			Severity:    SeverityError,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("Site config does not load: %v", cx.SiteErr),
			Explanation: "The generator refuses to build without a readable config.toml.",
			Fix:         "Repair the TOML at the reported line",
			Line:        1,
		}}
	}
	if cx.Site == nil {
		return nil
	}

	var issues []Issue
	for _, problem := range cx.Site.Problems() {
		severity := SeverityError
		if problem.Warning {
			severity = SeverityWarning
		}
		issues = append(issues, Issue{
			FilePath:    cx.SitePath,
			Severity:    severity,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("%s: %s", problem.Field, problem.Message),
			Fix:         "Edit config.toml",
			Line:        1,
		})
	}
	sortIssuesBySeverity(issues)
	return issues
}

func sortIssuesBySeverity(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity > issues[j].Severity
	})
}
