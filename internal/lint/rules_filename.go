package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// FilenameRule checks that post file names follow the kebab-case convention
// the permalink scheme assumes.
type FilenameRule struct{}

func (r *FilenameRule) Name() string { return "filename" }

func (r *FilenameRule) AppliesTo(*post.Post) bool { return true }

func (r *FilenameRule) Check(p *post.Post) []Issue {
	name := filepath.Base(p.Path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	var issues []Issue

	report := func(msg, explanation string) {
		issues = append(issues, Issue{
			FilePath:    p.Path,
			Severity:    SeverityWarning,
			Rule:        r.Name(),
			Message:     msg,
			Explanation: explanation,
			Fix:         fmt.Sprintf("Rename to %q, or run: blogkeeper lint --fix", SuggestFilename(name)),
		})
	}

	if strings.ToLower(name) != name {
		report("Filename contains uppercase letters",
			"URLs derived from mixed-case file names differ between case-sensitive and case-insensitive hosts.")
	}

	if strings.ContainsAny(name, " \t") {
		report("Filename contains spaces",
			"Spaces end up percent-encoded in the post URL.")
	}

	if bad := specialChars(stem); bad != "" {
		report(fmt.Sprintf("Filename contains special characters: %s", bad),
			"Characters outside a-z, 0-9, '-' and '_' produce unstable slugs.")
	}

	if doubleExtension(name) {
		report("Filename has a doubled extension",
			"A doubled extension is almost always an editor artifact.")
	}

	if strings.HasPrefix(stem, "-") || strings.HasPrefix(stem, "_") ||
		strings.HasSuffix(stem, "-") || strings.HasSuffix(stem, "_") {
		report("Filename starts or ends with a separator",
			"Leading or trailing separators survive into the slug.")
	}

	return issues
}

// specialChars returns the distinct offending characters in a filename stem,
// in first-seen order.
func specialChars(stem string) string {
	seen := map[rune]bool{}
	var bad []rune
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		case r == ' ' || r == '\t':
			// reported separately
		default:
			if !seen[r] {
				seen[r] = true
				bad = append(bad, r)
			}
		}
	}
	return string(bad)
}

func doubleExtension(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	rest := strings.TrimSuffix(name, ext)
	return strings.EqualFold(filepath.Ext(rest), ext)
}

// SuggestFilename returns the kebab-case name a file should have. The fixer
// uses this for renames, so it must be deterministic and always yield a
// usable name.
func SuggestFilename(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for doubleExtension(stem + ext) {
		stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	}

	slug := post.Slugify(stem)
	if slug == "" {
		slug = "untitled"
	}
	if ext == "" {
		ext = ".md"
	}
	return slug + strings.ToLower(ext)
}

// DetectDefaultPath picks the content directory to lint when the user gave
// none: content/posts if present, the bare content dir as fallback.
func DetectDefaultPath() (string, bool) {
	for _, candidate := range []string{"content/posts", "content"} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}
	return "content/posts", false
}
