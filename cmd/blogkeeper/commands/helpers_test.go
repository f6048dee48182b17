package commands

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/linkcheck"
	"git.home.luguber.info/inful/blogkeeper/internal/site"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

func testResolver(t *testing.T) func(linkcheck.Ref) bool {
	t.Helper()

	files := []content.PageFile{
		{
			Path:         "content/posts/going-modular.md",
			RelativePath: "posts/going-modular.md",
			Section:      "posts",
			Content: []byte(`---
title: "Going Modular"
date: 2022-03-10T08:00:00Z
draft: false
tags: [kotlin]
series: ["Tv Maniac Journey"]
---
Body.
`),
		},
		{
			Path:         "content/posts/scribbles.md",
			RelativePath: "posts/scribbles.md",
			Section:      "posts",
			Content: []byte(`---
title: "Scribbles"
date: 2023-05-02T08:00:00Z
draft: true
tags: [android]
---
Body.
`),
		},
	}

	corpus, err := content.BuildCorpus("content", files)
	require.NoError(t, err)
	tax := taxonomy.Build(corpus.Posts(), site.DefaultTaxonomies())
	return siteResolver(corpus, tax)
}

func TestSiteResolver(t *testing.T) {
	resolve := testResolver(t)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"known post", "/posts/going-modular/", true},
		{"unknown post", "/posts/never-wrote-this/", false},
		{"known tag", "/tags/kotlin/", true},
		{"tag casing is slugged", "/tags/Kotlin/", false},
		{"unknown tag", "/tags/rust/", false},
		{"series term", "/series/tv-maniac-journey/", true},
		{"relative md target", "/posts/scribbles.md", true},
		{"single segment passes", "/about/", true},
		{"deep path passes", "/2022/03/10/whatever/", true},
		{"root passes", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, resolve(linkcheck.Ref{URL: tt.url, Internal: true}))
		})
	}
}

func TestFilterRefs(t *testing.T) {
	refs := []linkcheck.Ref{
		{URL: "/posts/a/", Internal: true},
		{URL: "https://example.org/", Internal: false},
	}

	require.Len(t, filterRefs(refs, false, false), 2)

	internal := filterRefs(refs, true, false)
	require.Len(t, internal, 1)
	require.True(t, internal[0].Internal)

	external := filterRefs(refs, false, true)
	require.Len(t, external, 1)
	require.False(t, external[0].Internal)
}

func TestMatchFold(t *testing.T) {
	require.True(t, matchFold([]string{"Kotlin", "android"}, "kotlin"))
	require.True(t, matchFold([]string{"Kotlin"}, "KOTLIN"))
	require.False(t, matchFold([]string{"Kotlin"}, "swift"))
	require.False(t, matchFold(nil, "kotlin"))
}

func TestTreeHashNote(t *testing.T) {
	require.Equal(t, "", treeHashNote("abc", ""))
	require.Equal(t, " (unchanged)", treeHashNote("abc", "abc"))
	require.Equal(t, " (changed)", treeHashNote("abc", "def"))
}

func TestTopTerms(t *testing.T) {
	counts := map[string]int{"kotlin": 5, "android": 5, "compose": 2, "ci": 1}

	got := topTerms(counts, 3)
	require.Equal(t, []string{"android (5)", "kotlin (5)", "compose (2)"}, got)

	require.Empty(t, topTerms(nil, 3))
}
