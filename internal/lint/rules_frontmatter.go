package lint

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// FrontMatterRule checks that a post has front matter at all and that the
// fields it does have carry the right shapes.
type FrontMatterRule struct{}

func (r *FrontMatterRule) Name() string { return "front-matter" }

func (r *FrontMatterRule) AppliesTo(*post.Post) bool { return true }

func (r *FrontMatterRule) Check(p *post.Post) []Issue {
	var issues []Issue

	if !p.HadFrontMatter {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityError,
			Rule:        r.Name(),
			Message:     "Missing front matter",
			Explanation: "Posts need a YAML front matter block with at least title and date, or the generator publishes them untitled and undated.",
			Fix:         "Add a front matter block, or run: blogkeeper lint --fix",
			Line:        1,
		})
		return issues
	}

	for _, fe := range p.FieldErrors {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityError,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("Field %q %s", fe.Key, fe.Reason),
			Explanation: "The generator ignores fields with unexpected shapes, silently dropping the metadata.",
			Fix:         fmt.Sprintf("Correct the %q value in the front matter", fe.Key),
			Line:        1,
		})
	}

	return issues
}

// RequiredKeysRule enforces the keys every post must carry: title and date.
type RequiredKeysRule struct{}

func (r *RequiredKeysRule) Name() string { return "required-keys" }

// AppliesTo skips posts without front matter; FrontMatterRule already
// reported those.
func (r *RequiredKeysRule) AppliesTo(p *post.Post) bool { return p.HadFrontMatter }

func (r *RequiredKeysRule) Check(p *post.Post) []Issue {
	var issues []Issue

	if p.Meta.Title == "" && !hasFieldError(p, post.KeyTitle) {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityError,
			Rule:        r.Name(),
			Message:     "Missing required key: title",
			Explanation: "Untitled posts render with an empty heading and an empty <title> tag.",
			Fix:         "Add a title, or run: blogkeeper lint --fix to derive one from the file name",
			Line:        1,
		})
	}

	if p.Meta.Date.IsZero() && !hasFieldError(p, post.KeyDate) {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityError,
			Rule:        r.Name(),
			Message:     "Missing required key: date",
			Explanation: "Undated posts sort unpredictably in the archive and break the feed.",
			Fix:         "Add a date, or run: blogkeeper lint --fix to take it from git history",
			Line:        1,
		})
	}

	return issues
}

// hasFieldError reports whether the key already failed shape checking, in
// which case a missing-key report would be noise on top of the type error.
func hasFieldError(p *post.Post, key string) bool {
	for _, fe := range p.FieldErrors {
		if fe.Key == key {
			return true
		}
	}
	return false
}

// DateRule sanity-checks post dates.
type DateRule struct{}

func (r *DateRule) Name() string { return "post-dates" }

func (r *DateRule) AppliesTo(p *post.Post) bool {
	return p.HadFrontMatter && !p.Meta.Date.IsZero()
}

func (r *DateRule) Check(p *post.Post) []Issue {
	var issues []Issue
	now := time.Now()

	if p.Published() && p.Meta.Date.After(now.Add(time.Hour)) {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityWarning,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("Published post is dated in the future (%s)", p.Meta.Date.Format("2006-01-02")),
			Explanation: "The generator skips future-dated content by default, so this post will not appear until that date passes.",
			Fix:         "Backdate the post or mark it draft until it should go live",
			Line:        1,
		})
	}

	if p.Meta.Date.Year() < 2000 {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityWarning,
			Rule:        r.Name(),
			Message:     fmt.Sprintf("Suspicious post date %s", p.Meta.Date.Format("2006-01-02")),
			Explanation: "Dates before 2000 are usually a mangled year in hand-edited front matter.",
			Fix:         "Check the date value",
			Line:        1,
		})
	}

	return issues
}

// TagsRule nudges published posts toward having tags, which the taxonomy
// pages depend on.
type TagsRule struct{}

func (r *TagsRule) Name() string { return "tags" }

func (r *TagsRule) AppliesTo(p *post.Post) bool {
	return p.HadFrontMatter && p.Published()
}

func (r *TagsRule) Check(p *post.Post) []Issue {
	if len(p.Meta.Tags) > 0 || hasFieldError(p, post.KeyTags) {
		return nil
	}
	return []Issue{{
		FilePath:    p.Path,
		Severity:    SeverityWarning,
		Rule:        r.Name(),
		Message:     "Published post has no tags",
		Explanation: "Untagged posts are invisible on every tag page.",
		Fix:         "Add a tags list, or tags: [] to state the omission on purpose",
		Line:        1,
	}}
}
