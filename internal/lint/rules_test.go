package lint

import (
	"testing"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

func TestSuggestFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Post.md", "my-post.md"},
		{"ALL-CAPS.md", "all-caps.md"},
		{"already-fine.md", "already-fine.md"},
		{"weird__name--.md", "weird-name.md"},
		{"doubled.md.md", "doubled.md"},
		{"Úti Útgáfa.md", "uti-utgafa.md"},
		{"???.md", "untitled.md"},
	}
	for _, tt := range tests {
		if got := SuggestFilename(tt.in); got != tt.want {
			t.Errorf("SuggestFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilenameRule(t *testing.T) {
	rule := &FilenameRule{}
	tests := []struct {
		name   string
		issues int
	}{
		{"clean-name.md", 0},
		{"Upper.md", 1},
		{"with space.md", 1},
		{"tricky?.md", 1},
		{"-leading.md", 1},
		{"double.md.md", 1},
	}
	for _, tt := range tests {
		p := &post.Post{Path: "/content/posts/" + tt.name}
		got := rule.Check(p)
		if len(got) != tt.issues {
			t.Errorf("Check(%q) produced %d issues, want %d: %v", tt.name, len(got), tt.issues, got)
		}
	}
}

func TestInternalDestination(t *testing.T) {
	tests := []struct {
		dest string
		want bool
	}{
		{"https://example.com/x", false},
		{"http://example.com", false},
		{"mailto:hi@example.com", false},
		{"//cdn.example.com/img.png", false},
		{"#heading", false},
		{"", false},
		{"/posts/foo/", true},
		{"./sibling.md", true},
		{"images/pic.png", true},
		{"c:something", false}, // scheme-shaped
	}
	for _, tt := range tests {
		if got := internalDestination(tt.dest); got != tt.want {
			t.Errorf("internalDestination(%q) = %v, want %v", tt.dest, got, tt.want)
		}
	}
}

func TestInternalLinksRule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "target.md", `---
title: "Target"
date: 2023-01-01T10:00:00+01:00
draft: false
tags:
  - kotlin
---

I exist.
`)
	writeFile(t, root, "linker.md", `---
title: "Linker"
date: 2023-01-02T10:00:00+01:00
draft: false
tags:
  - kotlin
---

[ok post](/posts/target/) and [gone post](/posts/nope/).
[ok tag](/tags/kotlin/) and [gone tag](/tags/rust/).
[ok file](./target.md) and [gone file](missing.md).
[external](https://example.com/) and [fragment](#top) stay out of scope.
`)
	cx := lintContext(t, root, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC))

	issues := (&InternalLinksRule{}).CheckCorpus(cx)

	if len(issues) != 3 {
		t.Fatalf("got %d issues, want 3: %v", len(issues), issues)
	}
	for _, issue := range issues {
		if issue.Severity != SeverityWarning {
			t.Errorf("issue %q severity = %v, want warning", issue.Message, issue.Severity)
		}
		if issue.Rule != "internal-links" {
			t.Errorf("issue rule = %q", issue.Rule)
		}
	}
}

func TestStaleDraftsRule_UsesConfiguredAge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "draft.md", `---
title: "Slow Burn"
date: 2023-01-01T10:00:00+01:00
draft: true
---

Working on it.
`)
	cx := lintContext(t, root, time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC))

	strict := &StaleDraftsRule{MaxAge: 10 * 24 * time.Hour}
	if got := strict.CheckCorpus(cx); len(got) != 1 {
		t.Fatalf("strict rule: got %d issues, want 1", len(got))
	}

	lenient := &StaleDraftsRule{MaxAge: 30 * 24 * time.Hour}
	if got := lenient.CheckCorpus(cx); len(got) != 0 {
		t.Fatalf("lenient rule: got %d issues, want 0", len(got))
	}
}
