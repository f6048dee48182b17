// Package commands defines the blogkeeper CLI: the flag grammar, logging
// setup, and the shared workspace loading every command starts from.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/gitinfo"
	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/lint"
	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
	"git.home.luguber.info/inful/blogkeeper/internal/site"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Chdir   string           `short:"C" default:"." type:"existingdir" help:"Run as if started from this directory"`
	Config  string           `short:"c" default:"config.toml" help:"Site configuration file path"`
	Content string           `help:"Content directory (default: auto-detect content/posts/, content/)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Lint       LintCmd       `cmd:"" help:"Check posts and site config for problems"`
	Scan       ScanCmd       `cmd:"" help:"Scan the content tree and record the result in the index"`
	List       ListCmd       `cmd:"" help:"List posts"`
	Stats      StatsCmd      `cmd:"" help:"Show content statistics"`
	New        NewCmd        `cmd:"" help:"Scaffold a new draft post"`
	CheckLinks CheckLinksCmd `cmd:"" name:"check-links" help:"Verify the links posts point at"`
	Serve      ServeCmd      `cmd:"" help:"Run the local authoring server with file watching"`
	Init       InitCmd       `cmd:"" help:"Create a starter config.toml and content tree"`
}

// AfterApply runs after flag parsing; setup logging once, then move to the
// requested working directory so every path below is blog-relative.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if c.Chdir != "." {
		if err := os.Chdir(c.Chdir); err != nil {
			return fmt.Errorf("changing to %s: %w", c.Chdir, err)
		}
	}
	return nil
}

// view is the loaded workspace a command works from: site config, parsed
// content tree, taxonomy, and git metadata when available.
type view struct {
	ContentDir string
	ConfigPath string // "" when no config.toml exists
	Site       *site.Config
	SiteErr    error
	Files      []content.PageFile
	Corpus     *content.Corpus
	Manifest   *content.Manifest
	Taxonomy   *taxonomy.Index
	Git        *gitinfo.Info
}

// loadView reads the blog rooted at the current directory. root overrides
// the content directory; empty falls back to --content or detection.
func (c *CLI) loadView(root string) (*view, error) {
	v := &view{ConfigPath: c.Config}

	if _, err := os.Stat(v.ConfigPath); err == nil {
		v.Site, v.SiteErr = site.Load(v.ConfigPath)
	} else {
		v.ConfigPath = ""
	}

	if root == "" {
		root = c.contentDir()
	}
	v.ContentDir = root

	files, err := content.NewDiscovery(root).Discover()
	if err != nil {
		return nil, err
	}
	for i := range files {
		if err := files[i].LoadContent(); err != nil {
			slog.Debug("Skipping unreadable file", logfields.Error(err))
		}
	}
	v.Files = files
	v.Manifest = content.NewManifest(files)

	corpus, err := content.BuildCorpus(root, files)
	if err != nil {
		return nil, err
	}
	v.Corpus = corpus

	taxonomies := site.DefaultTaxonomies()
	if v.Site != nil && len(v.Site.Taxonomies) > 0 {
		taxonomies = v.Site.Taxonomies
	}
	v.Taxonomy = taxonomy.Build(corpus.Posts(), taxonomies)

	if info, err := gitinfo.Detect("."); err == nil {
		v.Git = info
	}
	return v, nil
}

// lintContext assembles the rule context from a loaded view.
func (v *view) lintContext() *lint.Context {
	return &lint.Context{
		Corpus:   v.Corpus,
		Site:     v.Site,
		SitePath: v.ConfigPath,
		SiteErr:  v.SiteErr,
		Taxonomy: v.Taxonomy,
		Git:      v.Git,
		Now:      time.Now(),
	}
}

// contentDir resolves the content directory: the --content flag when set,
// the full content/ tree when the repository follows the Hugo layout,
// otherwise whatever lint auto-detection settles on.
func (c *CLI) contentDir() string {
	if c.Content != "" {
		return c.Content
	}
	if info, err := os.Stat("content"); err == nil && info.IsDir() {
		return "content"
	}
	path, _ := lint.DetectDefaultPath()
	return path
}

// openIndex opens the scan index, creating its directory on first use.
func openIndex(path string) (*index.Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}
	return index.Open(path)
}
