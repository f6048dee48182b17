package post

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePost = `---
title: "Going Modular - The Kotlin Multiplatform Way"
date: 2022-05-03T21:12:33+03:00
draft: false
hideToc: true
tags:
  - android
  - kmp
series: ["Tv Maniac Journey"]
---
Splitting an app into feature modules keeps build times sane.

More words follow here.
`

func TestParse(t *testing.T) {
	p, err := Parse("content/posts/going-modular.md", []byte(samplePost))
	require.NoError(t, err)

	assert.Equal(t, "going-modular", p.Slug)
	assert.Equal(t, "Going Modular - The Kotlin Multiplatform Way", p.Meta.Title)
	assert.Equal(t, 2022, p.Year())
	assert.True(t, p.Published())
	assert.True(t, p.Meta.HideToc)
	assert.Equal(t, []string{"android", "kmp"}, p.Meta.Tags)
	assert.Equal(t, []string{"Tv Maniac Journey"}, p.Meta.Series)
	assert.Empty(t, p.FieldErrors)
	assert.Contains(t, string(p.Body), "feature modules")
}

func TestParse_ScalarSeries(t *testing.T) {
	content := []byte("---\ntitle: Intro\ndate: 2021-12-30\nseries: Tv Maniac Journey\n---\nbody\n")
	p, err := Parse("intro.md", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tv Maniac Journey"}, p.Meta.Series)
	assert.Empty(t, p.FieldErrors)
}

func TestParse_NoFrontMatter(t *testing.T) {
	p, err := Parse("notes.md", []byte("just a body\n"))
	require.NoError(t, err)
	assert.False(t, p.HadFrontMatter)
	assert.Empty(t, p.Meta.Title)
	assert.True(t, p.Meta.Date.IsZero())
}

func TestParse_UnclosedFrontMatter(t *testing.T) {
	_, err := Parse("broken.md", []byte("---\ntitle: Oops\nbody without closing fence\n"))
	require.Error(t, err)
}

func TestParse_CollectsFieldErrors(t *testing.T) {
	content := []byte("---\ntitle: 42\ndate: not-a-date\ndraft: maybe\ntags: solo\nseries: [1, 2]\n---\n")
	p, err := Parse("bad.md", content)
	require.NoError(t, err)

	keys := make([]string, 0, len(p.FieldErrors))
	for _, fe := range p.FieldErrors {
		keys = append(keys, fe.Key)
	}
	assert.ElementsMatch(t, []string{"title", "date", "draft", "series"}, keys)

	// tags accepts a bare scalar the same way series does
	assert.Equal(t, []string{"solo"}, p.Meta.Tags)
}

func TestMetaFromFields_ExtraPassthrough(t *testing.T) {
	meta, errs := MetaFromFields(map[string]any{
		"title":       "Hello",
		"description": "intro post",
		"weight":      3,
	})
	require.Empty(t, errs)
	assert.Equal(t, "Hello", meta.Title)
	assert.Equal(t, "intro post", meta.Extra["description"])
	assert.Equal(t, 3, meta.Extra["weight"])
}

func TestMetaFields_RoundTrip(t *testing.T) {
	date := time.Date(2022, 5, 3, 21, 12, 33, 0, time.FixedZone("", 3*60*60))
	meta := Meta{
		Title:   "Battle of the Navigators",
		Date:    date,
		Draft:   true,
		HideToc: true,
		Tags:    []string{"android", "compose"},
		Series:  []string{"Tv Maniac Journey"},
		Extra:   map[string]any{"description": "nav wars"},
	}

	fields := meta.Fields()
	back, errs := MetaFromFields(fields)
	require.Empty(t, errs)
	assert.Equal(t, meta.Title, back.Title)
	assert.True(t, meta.Date.Equal(back.Date))
	assert.Equal(t, meta.Draft, back.Draft)
	assert.Equal(t, meta.HideToc, back.HideToc)
	assert.Equal(t, meta.Tags, back.Tags)
	assert.Equal(t, meta.Series, back.Series)
	assert.Equal(t, meta.Extra, back.Extra)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2022-05-03-first-post.md")
	require.NoError(t, os.WriteFile(path, []byte(samplePost), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "first-post", p.Slug)
	assert.Equal(t, path, p.Path)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.md"))
	require.Error(t, err)
}

func TestRender_PreservesBody(t *testing.T) {
	p, err := Parse("a.md", []byte(samplePost))
	require.NoError(t, err)

	out, err := p.Render()
	require.NoError(t, err)

	again, err := Parse("a.md", out)
	require.NoError(t, err)
	assert.Equal(t, string(p.Body), string(again.Body))
	assert.Equal(t, p.Meta.Title, again.Meta.Title)
	assert.True(t, p.Meta.Date.Equal(again.Meta.Date))
}
