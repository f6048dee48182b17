// Package gitinfo answers the questions the toolchain has about the blog's
// git repository: when a post last changed, what is uncommitted, and where
// HEAD sits. Everything degrades gracefully when the content tree is not a
// repository.
package gitinfo

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotARepository marks a content tree without git history.
var ErrNotARepository = errors.New("not a git repository")

// Commit describes the repository HEAD.
type Commit struct {
	Hash      string
	ShortHash string
	Branch    string // empty when detached
	When      time.Time
}

// Info wraps an opened repository.
type Info struct {
	repo *git.Repository
	root string
}

// Detect opens the repository containing dir, walking upward like the git
// CLI does.
func Detect(dir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotARepository, dir)
		}
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository worktree: %w", err)
	}

	return &Info{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the worktree root.
func (g *Info) Root() string { return g.root }

// RelPath converts a path into the slash-separated repo-relative form the
// go-git APIs expect.
func (g *Info) RelPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return "", fmt.Errorf("path %s outside repository %s: %w", path, g.root, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s outside repository %s", path, g.root)
	}
	return filepath.ToSlash(rel), nil
}

// Head describes the current HEAD commit.
func (g *Info) Head() (Commit, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return Commit{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return Commit{}, fmt.Errorf("read HEAD commit: %w", err)
	}

	c := Commit{
		Hash:      ref.Hash().String(),
		ShortHash: ref.Hash().String()[:8],
		When:      commit.Committer.When,
	}
	if ref.Name().IsBranch() {
		c.Branch = ref.Name().Short()
	}
	return c, nil
}

// LastModified returns the committer time of the newest commit touching the
// file. found is false for files with no history yet.
func (g *Info) LastModified(path string) (when time.Time, found bool, err error) {
	rel, err := g.RelPath(path)
	if err != nil {
		return time.Time{}, false, err
	}

	iter, err := g.repo.Log(&git.LogOptions{
		FileName: &rel,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("log %s: %w", rel, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("log %s: %w", rel, err)
	}
	return commit.Committer.When, true, nil
}

// UncommittedPaths returns the repo-relative paths with staged or worktree
// changes, untracked files included.
func (g *Info) UncommittedPaths() (map[string]bool, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	dirty := map[string]bool{}
	for path, st := range status {
		if st.Worktree != git.Unmodified || st.Staging != git.Unmodified {
			dirty[path] = true
		}
	}
	return dirty, nil
}

// Stage adds a path to the index. A tracked path that no longer exists on
// disk is staged as a removal, which keeps renames clean.
func (g *Info) Stage(path string) error {
	rel, err := g.RelPath(path)
	if err != nil {
		return err
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("repository worktree: %w", err)
	}
	if _, err := wt.Add(rel); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	return nil
}

// IsDirty reports whether one file has uncommitted changes.
func (g *Info) IsDirty(path string) (bool, error) {
	rel, err := g.RelPath(path)
	if err != nil {
		return false, err
	}
	dirty, err := g.UncommittedPaths()
	if err != nil {
		return false, err
	}
	return dirty[rel], nil
}

// FirstCommitOf walks the full history of a file and returns its oldest
// commit time. Useful as the authored-on fallback when front matter has no
// date.
func (g *Info) FirstCommitOf(path string) (when time.Time, found bool, err error) {
	rel, err := g.RelPath(path)
	if err != nil {
		return time.Time{}, false, err
	}

	iter, err := g.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("log %s: %w", rel, err)
	}
	defer iter.Close()

	var oldest *object.Commit
	for {
		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("log %s: %w", rel, err)
		}
		oldest = commit
	}
	if oldest == nil {
		return time.Time{}, false, nil
	}
	return oldest.Committer.When, true, nil
}
