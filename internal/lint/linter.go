package lint

import (
	"fmt"
	"sort"
)

// Linter runs the rule set over a loaded content context.
type Linter struct {
	cfg         *Config
	rules       []Rule
	corpusRules []CorpusRule
}

// NewLinter creates a linter with the default rule set.
func NewLinter(cfg *Config) *Linter {
	if cfg == nil {
		cfg = &Config{Format: "text"}
	}
	if cfg.StaleDraftAge == 0 {
		cfg.StaleDraftAge = DefaultStaleDraftAge
	}

	return &Linter{
		cfg: cfg,
		rules: []Rule{
			&FrontMatterRule{},
			&RequiredKeysRule{},
			&DateRule{},
			&TagsRule{},
			&FilenameRule{},
		},
		corpusRules: []CorpusRule{
			&DuplicatePostsRule{},
			&TaxonomyCasingRule{},
			&SeriesSingletonRule{},
			&InternalLinksRule{},
			&StaleDraftsRule{MaxAge: cfg.StaleDraftAge},
			&SiteConfigRule{},
		},
	}
}

// Run applies every rule to the context and returns the collected issues,
// stable-sorted by file then line.
func (l *Linter) Run(cx *Context) *Result {
	result := &Result{Issues: []Issue{}}
	if cx.Corpus != nil {
		result.FilesTotal = cx.Corpus.Len() + len(cx.Corpus.Failures()) + len(cx.Corpus.SectionStubs())

		// Files that failed to parse can't reach the rules; report them
		// directly.
		for _, failure := range cx.Corpus.Failures() {
			result.Issues = append(result.Issues, Issue{
				FilePath:    failure.File.Path,
				Severity:    SeverityError,
				Rule:        "front-matter",
				Message:     fmt.Sprintf("Front matter does not parse: %v", failure.Err),
				Explanation: "Front matter must be valid YAML between --- delimiters. The site generator fails the whole build on files like this.",
				Fix:         "Repair the YAML by hand; the block starts at line 1",
				Line:        1,
			})
		}

		for _, p := range cx.Corpus.Posts() {
			for _, rule := range l.rules {
				if !rule.AppliesTo(p) {
					continue
				}
				result.Issues = append(result.Issues, rule.Check(p)...)
			}
		}
	}

	for _, rule := range l.corpusRules {
		result.Issues = append(result.Issues, rule.CheckCorpus(cx)...)
	}

	if l.cfg.Quiet {
		kept := result.Issues[:0]
		for _, issue := range result.Issues {
			if issue.Severity == SeverityError {
				kept = append(kept, issue)
			}
		}
		result.Issues = kept
	}

	sort.SliceStable(result.Issues, func(i, j int) bool {
		a, b := result.Issues[i], result.Issues[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Severity > b.Severity
	})
	return result
}

// Rules returns the registered per-post rule names, for --list-rules style
// introspection.
func (l *Linter) Rules() []string {
	names := make([]string, 0, len(l.rules)+len(l.corpusRules))
	for _, r := range l.rules {
		names = append(names, r.Name())
	}
	for _, r := range l.corpusRules {
		names = append(names, r.Name())
	}
	sort.Strings(names)
	return names
}
