package lint

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/frontmatter"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// RenameOperation records one applied or planned file rename.
type RenameOperation struct {
	From string
	To   string
}

// FieldAddition records one front matter key the fixer writes.
type FieldAddition struct {
	FilePath string
	Key      string
	Value    any
}

// FixResult summarizes what the fixer did, or under DryRun, would have done.
type FixResult struct {
	FilesRenamed []RenameOperation
	FieldsAdded  []FieldAddition
	Errors       []error
	Cancelled    bool
}

// Empty reports whether the fixer found nothing to do.
func (fr *FixResult) Empty() bool {
	return len(fr.FilesRenamed) == 0 && len(fr.FieldsAdded) == 0 && len(fr.Errors) == 0
}

// Fixer applies the mechanical fixes the rules suggest: missing front matter
// keys and nonconforming file names. Malformed values are never touched;
// guessing the author's intent is not a fix.
type Fixer struct {
	cfg *Config
	in  io.Reader
	out io.Writer
}

// NewFixer creates a fixer reading confirmations from stdin.
func NewFixer(cfg *Config) *Fixer {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Fixer{cfg: cfg, in: os.Stdin, out: os.Stdout}
}

type plannedFix struct {
	post      *post.Post
	additions []FieldAddition
	renameTo  string
}

// Fix walks the lint result and applies every fix it knows how to make.
func (f *Fixer) Fix(cx *Context, result *Result) (*FixResult, error) {
	out := &FixResult{}
	if cx == nil || cx.Corpus == nil || result == nil {
		return out, nil
	}

	plan := f.plan(cx, result)
	total := 0
	for _, pf := range plan {
		total += len(pf.additions)
		if pf.renameTo != "" {
			total++
		}
	}
	if total == 0 {
		return out, nil
	}

	if f.cfg.DryRun {
		for _, pf := range plan {
			out.FieldsAdded = append(out.FieldsAdded, pf.additions...)
			if pf.renameTo != "" {
				out.FilesRenamed = append(out.FilesRenamed, RenameOperation{From: pf.post.Path, To: pf.renameTo})
			}
		}
		return out, nil
	}

	if !f.cfg.Yes && !f.confirm(total) {
		out.Cancelled = true
		return out, nil
	}

	claimed := map[string]bool{}
	for _, pf := range plan {
		if len(pf.additions) > 0 {
			if err := writeAdditions(pf); err != nil {
				out.Errors = append(out.Errors, err)
			} else {
				out.FieldsAdded = append(out.FieldsAdded, pf.additions...)
			}
		}

		if pf.renameTo == "" {
			continue
		}
		if claimed[pf.renameTo] {
			out.Errors = append(out.Errors, fmt.Errorf("skip rename of %s: %s already claimed by another fix", pf.post.Path, pf.renameTo))
			continue
		}
		if _, err := os.Stat(pf.renameTo); err == nil {
			out.Errors = append(out.Errors, fmt.Errorf("skip rename of %s: %s already exists", pf.post.Path, pf.renameTo))
			continue
		}
		if err := os.Rename(pf.post.Path, pf.renameTo); err != nil {
			out.Errors = append(out.Errors, fmt.Errorf("rename %s: %w", pf.post.Path, err))
			continue
		}
		if cx.Git != nil {
			_ = cx.Git.Stage(pf.post.Path)
			_ = cx.Git.Stage(pf.renameTo)
		}
		claimed[pf.renameTo] = true
		out.FilesRenamed = append(out.FilesRenamed, RenameOperation{From: pf.post.Path, To: pf.renameTo})
	}
	return out, nil
}

func (f *Fixer) plan(cx *Context, result *Result) []*plannedFix {
	byPath := map[string]*plannedFix{}
	var order []*plannedFix

	get := func(p *post.Post) *plannedFix {
		pf, ok := byPath[p.Path]
		if !ok {
			pf = &plannedFix{post: p}
			byPath[p.Path] = pf
			order = append(order, pf)
		}
		return pf
	}

	now := cx.Now
	if now.IsZero() {
		now = time.Now()
	}

	for _, issue := range result.Issues {
		p := findPost(cx, issue.FilePath)
		if p == nil {
			continue
		}
		switch issue.Rule {
		case "front-matter", "required-keys", "tags":
			get(p).ensureMetadata(cx, now)
		case "filename":
			base := filepath.Base(p.Path)
			if suggested := SuggestFilename(base); suggested != base {
				get(p).renameTo = filepath.Join(filepath.Dir(p.Path), suggested)
			}
		}
	}
	return order
}

// ensureMetadata plans the missing-key additions for one post. Keys that are
// present but malformed stay untouched.
func (pf *plannedFix) ensureMetadata(cx *Context, now time.Time) {
	p := pf.post
	add := func(key string, value any) {
		for _, a := range pf.additions {
			if a.Key == key {
				return
			}
		}
		pf.additions = append(pf.additions, FieldAddition{FilePath: p.Path, Key: key, Value: value})
	}

	if !p.HadFrontMatter {
		add(post.KeyTitle, post.TitleFromSlug(p.Slug))
		add(post.KeyDate, authoredAt(cx, p, now))
		add(post.KeyDraft, true)
		add(post.KeyTags, []string{})
		return
	}

	if p.Meta.Title == "" && !frontmatter.Has(p.Fields, post.KeyTitle) {
		add(post.KeyTitle, post.TitleFromSlug(p.Slug))
	}
	if p.Meta.Date.IsZero() && !frontmatter.Has(p.Fields, post.KeyDate) {
		add(post.KeyDate, authoredAt(cx, p, now))
	}
	if p.Published() && len(p.Meta.Tags) == 0 && !frontmatter.Has(p.Fields, post.KeyTags) {
		add(post.KeyTags, []string{})
	}
}

// authoredAt picks a default date: the file's first git commit when history
// is available, the current time otherwise.
func authoredAt(cx *Context, p *post.Post, now time.Time) time.Time {
	if cx.Git != nil {
		if when, found, err := cx.Git.FirstCommitOf(p.Path); err == nil && found {
			return when
		}
	}
	return now
}

func writeAdditions(pf *plannedFix) error {
	p := pf.post
	fields := make(map[string]any, len(p.Fields)+len(pf.additions))
	for k, v := range p.Fields {
		fields[k] = v
	}
	for _, a := range pf.additions {
		fields[a.Key] = a.Value
	}

	content, err := frontmatter.Write(fields, p.Body, true, p.Style)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", p.Path, err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(p.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(p.Path, content, mode); err != nil {
		return fmt.Errorf("write %s: %w", p.Path, err)
	}
	return nil
}

func findPost(cx *Context, path string) *post.Post {
	for _, p := range cx.Corpus.Posts() {
		if p.Path == path {
			return p
		}
	}
	return nil
}

func (f *Fixer) confirm(total int) bool {
	fmt.Fprintf(f.out, "Apply %d %s? [y/N] ", total, pluralize(total, "fix", "fixes"))
	scanner := bufio.NewScanner(f.in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
