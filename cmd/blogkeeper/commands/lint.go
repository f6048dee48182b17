package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/lint"
)

// LintCmd implements the 'lint' command.
type LintCmd struct {
	Format     string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Quiet      bool   `short:"q" help:"Quiet mode: only show errors, suppress warnings"`
	Fix        bool   `help:"Automatically fix issues where possible (requires confirmation)"`
	DryRun     bool   `help:"Show what would be fixed without applying changes (requires --fix)"`
	Yes        bool   `short:"y" help:"Auto-confirm fixes without prompting (for CI/CD)"`
	StaleAfter int    `name:"stale-after" default:"60" help:"Days an untouched draft may age before stale-drafts flags it"`

	Path        *LintPathCmd    `cmd:"" default:"withargs" help:"Lint a content directory"`
	InstallHook *InstallHookCmd `cmd:"" help:"Install pre-commit hook for automatic linting"`
}

// LintPathCmd handles linting a specific path.
type LintPathCmd struct {
	Path string `help:"Content directory to lint. Defaults to intelligent detection (content/posts/, content/)" arg:"" optional:""`
}

// Run executes the lint path command.
func (lp *LintPathCmd) Run(parent *LintCmd, _ *Global, root *CLI) error {
	if parent.DryRun && !parent.Fix {
		return errors.New("--dry-run requires --fix flag")
	}

	path := lp.Path
	wasAutoDetected := false

	if path == "" {
		var found bool
		path, found = lint.DetectDefaultPath()
		wasAutoDetected = found

		if root.Verbose {
			if found {
				fmt.Fprintf(os.Stderr, "Detected content directory: %s\n", path)
			} else {
				fmt.Fprintf(os.Stderr, "No content directory detected (checked: content/posts/, content/)\n")
			}
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}

	cfg := &lint.Config{
		Quiet:         parent.Quiet,
		Format:        parent.Format,
		Fix:           parent.Fix,
		DryRun:        parent.DryRun,
		Yes:           parent.Yes,
		StaleDraftAge: time.Duration(parent.StaleAfter) * 24 * time.Hour,
	}
	linter := lint.NewLinter(cfg)

	v, err := root.loadView(path)
	if err != nil {
		return fmt.Errorf("linting failed: %w", err)
	}
	cx := v.lintContext()
	result := linter.Run(cx)

	if parent.Fix {
		fixer := lint.NewFixer(cfg)
		fixResult, err := fixer.Fix(cx, result)
		if err != nil {
			return fmt.Errorf("fixing failed: %w", err)
		}
		lint.FormatFixResult(os.Stdout, fixResult, parent.DryRun)
		if len(fixResult.Errors) > 0 {
			os.Exit(2)
		}
		if fixResult.Cancelled || parent.DryRun || fixResult.Empty() {
			return nil
		}

		// Re-lint so the report reflects the tree as fixed.
		v, err = root.loadView(path)
		if err != nil {
			return fmt.Errorf("linting failed: %w", err)
		}
		cx = v.lintContext()
		result = linter.Run(cx)
		fmt.Fprintln(os.Stdout)
	}

	formatter := lint.NewFormatter(parent.Format)
	if err := formatter.Format(os.Stdout, result, path, wasAutoDetected); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Determine exit code based on results
	if result.HasErrors() {
		os.Exit(2) // Errors found (blocks publishing)
	} else if result.HasWarnings() && !parent.Quiet {
		os.Exit(1) // Warnings present
	}

	return nil
}
