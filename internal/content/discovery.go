// Package content discovers the Markdown files of a blog content tree and
// assembles them into a parsed, queryable corpus.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
)

// DefaultRoot is where the generator's conventions put blog posts.
const DefaultRoot = "content/posts"

var (
	ErrContentDirMissing = errors.New("content directory does not exist")
	ErrWalkFailed        = errors.New("failed to walk content directory")
	ErrFileReadFailed    = errors.New("failed to read content file")
)

// PageFile is one discovered Markdown file, content loaded on demand.
type PageFile struct {
	Path          string // path as walked (root-joined)
	RelativePath  string // path relative to the content root
	Section       string // directory under the root, "" at root level
	Name          string // file name without extension
	Extension     string
	IsSectionStub bool // _index.md section pages
	Content       []byte
}

// LoadContent reads the file body once; later calls are no-ops.
func (f *PageFile) LoadContent() error {
	if f.Content != nil {
		return nil
	}
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFileReadFailed, f.Path, err)
	}
	f.Content = content
	return nil
}

// Discovery walks a content root for Markdown files.
type Discovery struct {
	root string
}

func NewDiscovery(root string) *Discovery {
	if root == "" {
		root = DefaultRoot
	}
	return &Discovery{root: root}
}

// Discover finds every Markdown page under the root. Hidden files and
// directories are skipped, as are repository files like README.md at the
// root level.
func (d *Discovery) Discover() ([]PageFile, error) {
	if _, err := os.Stat(d.root); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrContentDirMissing, d.root)
	}

	var files []PageFile
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() {
			if path != d.root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !isMarkdownFile(name) {
			return nil
		}

		relPath, err := filepath.Rel(d.root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}

		section := filepath.Dir(relPath)
		if section == "." {
			section = ""
		}
		if section == "" && isIgnoredFile(name) {
			return nil
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		files = append(files, PageFile{
			Path:          path,
			RelativePath:  relPath,
			Section:       section,
			Name:          base,
			Extension:     filepath.Ext(name),
			IsSectionStub: base == "_index" || base == "index",
		})

		slog.Debug("Discovered page", logfields.File(relPath), logfields.Section(section))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWalkFailed, d.root, err)
	}

	slog.Debug("Content discovery finished", logfields.Path(d.root), logfields.Count(len(files)))
	return files, nil
}

func isMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown" || ext == ".mkd"
}

// isIgnoredFile lists repository files that are not blog content.
func isIgnoredFile(filename string) bool {
	ignored := []string{
		"README.md",
		"CONTRIBUTING.md",
		"CHANGELOG.md",
		"LICENSE.md",
		"CODE_OF_CONDUCT.md",
	}
	for _, ignore := range ignored {
		if strings.EqualFold(filename, ignore) {
			return true
		}
	}
	return false
}
