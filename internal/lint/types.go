package lint

import (
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/gitinfo"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
	"git.home.luguber.info/inful/blogkeeper/internal/site"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

// Severity indicates the importance level of a linting issue.
type Severity int

const (
	// SeverityInfo indicates informational findings.
	SeverityInfo Severity = iota
	// SeverityWarning indicates issues that should be fixed but survive a build.
	SeverityWarning
	// SeverityError indicates issues that break or corrupt the published site.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a single linting problem.
type Issue struct {
	FilePath    string   // File the issue belongs to
	Severity    Severity // Issue severity level
	Rule        string   // Rule identifier (e.g., "required-keys")
	Message     string   // Brief description of the issue
	Explanation string   // Detailed explanation with context
	Fix         string   // Suggested fix or command to resolve
	Line        int      // Line number (0 if file-level issue)
}

// Result contains all issues found during linting.
type Result struct {
	Issues     []Issue
	FilesTotal int // Markdown files scanned
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int { return r.countBy(SeverityError) }

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int { return r.countBy(SeverityWarning) }

// InfoCount returns the number of informational issues.
func (r *Result) InfoCount() int { return r.countBy(SeverityInfo) }

func (r *Result) countBy(sev Severity) int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			count++
		}
	}
	return count
}

// Rule checks a single parsed post.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string

	// AppliesTo returns true if this rule should run for the given post.
	AppliesTo(p *post.Post) bool

	// Check validates a post and returns any issues found.
	Check(p *post.Post) []Issue
}

// CorpusRule checks properties that only hold (or break) across the whole
// content tree, like duplicate detection.
type CorpusRule interface {
	Name() string
	CheckCorpus(cx *Context) []Issue
}

// Context is everything rules may inspect. Git is nil outside a repository;
// Site is nil when config.toml was unreadable, with the load error kept for
// the site-config rule to report.
type Context struct {
	Corpus   *content.Corpus
	Site     *site.Config
	SitePath string
	SiteErr  error
	Taxonomy *taxonomy.Index
	Git      *gitinfo.Info
	Now      time.Time
}

// Config contains configuration for the linter.
type Config struct {
	// Quiet suppresses warnings and info, only showing errors.
	Quiet bool

	// Format specifies output format (text, json).
	Format string

	// Fix enables automatic fixing of issues where possible.
	Fix bool

	// DryRun shows what would be fixed without applying changes.
	DryRun bool

	// Yes automatically confirms fixes without prompting.
	Yes bool

	// StaleDraftAge is how long a draft may sit untouched before the
	// stale-drafts rule flags it.
	StaleDraftAge time.Duration
}

// DefaultStaleDraftAge flags drafts untouched for two months.
const DefaultStaleDraftAge = 60 * 24 * time.Hour
