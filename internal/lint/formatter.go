package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Formatter renders a lint result for humans or machines.
type Formatter interface {
	Format(w io.Writer, result *Result, detectedPath string, wasAutoDetected bool) error
}

// NewFormatter returns the formatter for a --format value. Unknown values
// fall back to text.
func NewFormatter(format string) Formatter {
	switch format {
	case "json":
		return &JSONFormatter{}
	default:
		return &TextFormatter{}
	}
}

// TextFormatter renders issues grouped by file, with icons and fix hints.
type TextFormatter struct{}

func (f *TextFormatter) Format(w io.Writer, result *Result, detectedPath string, wasAutoDetected bool) error {
	if detectedPath != "" {
		suffix := ""
		if wasAutoDetected {
			suffix = " (auto-detected)"
		}
		fmt.Fprintf(w, "Linting %s%s\n\n", detectedPath, suffix)
	}

	if len(result.Issues) == 0 {
		fmt.Fprintln(w, "✨ All content passes linting!")
		return nil
	}

	var files []string
	byFile := map[string][]Issue{}
	for _, issue := range result.Issues {
		if _, seen := byFile[issue.FilePath]; !seen {
			files = append(files, issue.FilePath)
		}
		byFile[issue.FilePath] = append(byFile[issue.FilePath], issue)
	}

	for _, file := range files {
		fmt.Fprintf(w, "%s:\n", file)
		for _, issue := range byFile[file] {
			location := ""
			if issue.Line > 0 {
				location = fmt.Sprintf(" (line %d)", issue.Line)
			}
			fmt.Fprintf(w, "  %s %s%s\n", severityIcon(issue.Severity), issue.Message, location)
			if issue.Explanation != "" {
				fmt.Fprintf(w, "    %s\n", issue.Explanation)
			}
			if issue.Fix != "" {
				fmt.Fprintf(w, "    → %s\n", issue.Fix)
			}
		}
		fmt.Fprintln(w)
	}

	var parts []string
	if n := result.ErrorCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, pluralize(n, "error", "errors")))
	}
	if n := result.WarningCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", n, pluralize(n, "warning", "warnings")))
	}
	if n := result.InfoCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d info", n))
	}
	fmt.Fprintf(w, "Summary: %s in %d %s\n",
		strings.Join(parts, ", "), result.FilesTotal, pluralize(result.FilesTotal, "file", "files"))

	if result.HasErrors() || result.HasWarnings() {
		fmt.Fprintln(w, "\nSome of these fix themselves: blogkeeper lint --fix")
	}
	return nil
}

func severityIcon(s Severity) string {
	switch s {
	case SeverityError:
		return "✗"
	case SeverityWarning:
		return "⚠"
	default:
		return "ℹ"
	}
}

// JSONFormatter renders the result as one JSON document, for editors and CI.
type JSONFormatter struct{}

// JSONIssue is the wire shape of a single issue.
type JSONIssue struct {
	File        string `json:"file"`
	Line        int    `json:"line,omitempty"`
	Severity    string `json:"severity"`
	Rule        string `json:"rule"`
	Message     string `json:"message"`
	Explanation string `json:"explanation,omitempty"`
	Fix         string `json:"fix,omitempty"`
}

// JSONOutput is the wire shape of a whole lint run.
type JSONOutput struct {
	Path       string      `json:"path,omitempty"`
	Issues     []JSONIssue `json:"issues"`
	Errors     int         `json:"errors"`
	Warnings   int         `json:"warnings"`
	Info       int         `json:"info"`
	FilesTotal int         `json:"files_total"`
}

func (f *JSONFormatter) Format(w io.Writer, result *Result, detectedPath string, _ bool) error {
	out := JSONOutputFrom(result, detectedPath)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// JSONOutputFrom builds the wire document. The authoring server serves the
// same shape from its issues endpoint.
func JSONOutputFrom(result *Result, detectedPath string) JSONOutput {
	out := JSONOutput{
		Path:       detectedPath,
		Issues:     make([]JSONIssue, 0, len(result.Issues)),
		Errors:     result.ErrorCount(),
		Warnings:   result.WarningCount(),
		Info:       result.InfoCount(),
		FilesTotal: result.FilesTotal,
	}
	for _, issue := range result.Issues {
		out.Issues = append(out.Issues, JSONIssue{
			File:        issue.FilePath,
			Line:        issue.Line,
			Severity:    strings.ToLower(issue.Severity.String()),
			Rule:        issue.Rule,
			Message:     issue.Message,
			Explanation: issue.Explanation,
			Fix:         issue.Fix,
		})
	}
	return out
}

// FormatFixResult prints what the fixer changed, or under dryRun, what it
// would change.
func FormatFixResult(w io.Writer, fr *FixResult, dryRun bool) {
	if fr.Cancelled {
		fmt.Fprintln(w, "Aborted, nothing changed")
		return
	}
	if fr.Empty() {
		fmt.Fprintln(w, "Nothing to fix")
		return
	}

	addVerb, renameVerb := "Added", "Renamed"
	if dryRun {
		addVerb, renameVerb = "Would add", "Would rename"
	}
	for _, fa := range fr.FieldsAdded {
		fmt.Fprintf(w, "%s %s to %s\n", addVerb, fa.Key, fa.FilePath)
	}
	for _, op := range fr.FilesRenamed {
		fmt.Fprintf(w, "%s %s → %s\n", renameVerb, op.From, filepath.Base(op.To))
	}
	for _, err := range fr.Errors {
		fmt.Fprintf(w, "✗ %v\n", err)
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
