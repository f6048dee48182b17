package commands

import (
	"fmt"
	"os"
	"path/filepath"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
	"git.home.luguber.info/inful/blogkeeper/internal/site"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool `help:"Overwrite an existing config.toml"`
	Sample bool `help:"Scaffold a sample first post"`
}

// Run executes the init command.
func (cmd *InitCmd) Run(_ *Global, root *CLI) error {
	if err := site.Init(root.Config, cmd.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", root.Config)

	dir := filepath.Join("content", "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return kerrors.WrapError(err, kerrors.CategoryFileSystem, "failed to create content directory")
	}
	fmt.Printf("Created %s%c\n", dir, os.PathSeparator)

	if cmd.Sample {
		name, doc, err := post.Scaffold("My First Post", post.ScaffoldOptions{Tags: []string{"meta"}})
		if err != nil {
			return err
		}
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Sample post %s already exists, leaving it alone\n", target)
		} else if err := os.WriteFile(target, doc, 0o644); err != nil {
			return kerrors.WrapError(err, kerrors.CategoryFileSystem, "failed to write sample post")
		} else {
			fmt.Printf("Created %s\n", target)
		}
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  blogkeeper new \"Hello World\"   scaffold your first post")
	fmt.Println("  blogkeeper serve               local authoring server on :1313")
	return nil
}
