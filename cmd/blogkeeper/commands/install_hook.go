package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/gitinfo"
)

// InstallHookCmd implements the 'lint install-hook' command.
type InstallHookCmd struct {
	Force bool `help:"Overwrite existing hook without backup"`
}

// Run executes the install-hook command.
func (cmd *InstallHookCmd) Run(_ *Global, _ *CLI) error {
	hooksDir, err := findHooksDir()
	if err != nil {
		return fmt.Errorf("not in a Git repository: %w", err)
	}
	hookPath := filepath.Join(hooksDir, "pre-commit")

	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create hooks directory: %w", err)
	}

	// Backup existing hook unless --force
	if _, err := os.Stat(hookPath); err == nil && !cmd.Force {
		backupPath := fmt.Sprintf("%s.backup-%s", hookPath, time.Now().Format("20060102-150405"))
		fmt.Printf("Backing up existing hook to: %s\n", backupPath)

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			return fmt.Errorf("failed to read existing hook: %w", err)
		}
		if err := os.WriteFile(backupPath, existing, 0o755); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	hookContent := `#!/usr/bin/env bash
# blogkeeper pre-commit hook - lint staged posts before they land
set -e

BLOGKEEPER_CMD=""
if command -v blogkeeper &> /dev/null; then
    BLOGKEEPER_CMD="blogkeeper"
elif [ -f "go.mod" ] && grep -q "blogkeeper" go.mod; then
    # In development mode - use go run
    BLOGKEEPER_CMD="go run ./cmd/blogkeeper"
else
    echo "blogkeeper not found in PATH"
    echo "  Install: go install git.home.luguber.info/inful/blogkeeper/cmd/blogkeeper@latest"
    echo "  Skipping content linting..."
    exit 0
fi

# Only fire when posts or the site config are staged
STAGED=$(git diff --cached --name-only --diff-filter=ACM | grep -E '(^config\.toml$|\.(md|markdown)$)' || true)

if [ -z "$STAGED" ]; then
    exit 0
fi

echo "Linting staged content..."

if $BLOGKEEPER_CMD lint --quiet; then
    echo "Content linting passed"
    exit 0
else
    EXIT_CODE=$?
    echo ""
    echo "Content linting failed"
    echo ""
    echo "To fix automatically:"
    echo "  $BLOGKEEPER_CMD lint --fix"
    echo ""
    echo "To bypass this check (not recommended):"
    echo "  git commit --no-verify"
    echo ""
    exit $EXIT_CODE
fi
`

	if err := os.WriteFile(hookPath, []byte(hookContent), 0o755); err != nil {
		return fmt.Errorf("failed to write hook file: %w", err)
	}

	fmt.Println("Pre-commit hook installed")
	fmt.Println()
	fmt.Println("The hook will:")
	fmt.Println("  - Run automatically on 'git commit'")
	fmt.Println("  - Lint when posts or config.toml are staged")
	fmt.Println("  - Block commits with linting errors")
	fmt.Println()
	fmt.Println("To uninstall:")
	fmt.Printf("  rm %s\n", hookPath)

	return nil
}

// findHooksDir locates the hooks directory of the enclosing repository.
// Worktrees and submodules keep a pointer file where .git usually is.
func findHooksDir() (string, error) {
	info, err := gitinfo.Detect(".")
	if err != nil {
		return "", err
	}

	gitPath := filepath.Join(info.Root(), ".git")
	fi, err := os.Stat(gitPath)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return filepath.Join(gitPath, "hooks"), nil
	}

	pointer, err := os.ReadFile(gitPath)
	if err != nil {
		return "", err
	}
	if rest, ok := strings.CutPrefix(strings.TrimSpace(string(pointer)), "gitdir: "); ok {
		return filepath.Join(rest, "hooks"), nil
	}
	return "", errors.New("unrecognized .git layout")
}
