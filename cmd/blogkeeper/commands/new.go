package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	Title   []string `arg:"" help:"Post title (quoting optional, words are joined)"`
	Tags    []string `short:"t" help:"Tags for the front matter"`
	Series  string   `help:"Series the post belongs to"`
	Section string   `default:"posts" help:"Content section the post lands in"`
	HideToc bool     `name:"hide-toc" help:"Start with hideToc enabled"`
}

// Run executes the new command.
func (cmd *NewCmd) Run(_ *Global, root *CLI) error {
	title := strings.TrimSpace(strings.Join(cmd.Title, " "))

	name, doc, err := post.Scaffold(title, post.ScaffoldOptions{
		Tags:    cmd.Tags,
		Series:  cmd.Series,
		HideToc: cmd.HideToc,
	})
	if err != nil {
		return err
	}

	dir := cmd.targetDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kerrors.WrapError(err, kerrors.CategoryFileSystem, "failed to create posts directory")
	}

	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return kerrors.ValidationError(fmt.Sprintf("%s already exists", target))
	}
	if err := os.WriteFile(target, doc, 0o644); err != nil {
		return kerrors.WrapError(err, kerrors.CategoryFileSystem, "failed to write post")
	}

	fmt.Printf("Created %s\n", target)
	fmt.Println("The post starts as a draft; flip 'draft: false' when it is ready.")
	return nil
}

// targetDir places the post under --content when that is set, otherwise
// under content/<section>.
func (cmd *NewCmd) targetDir(root *CLI) string {
	if root.Content != "" {
		return root.Content
	}
	return filepath.Join("content", cmd.Section)
}
