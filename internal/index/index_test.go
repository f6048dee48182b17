package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/linkcheck"
)

func testCorpus(t *testing.T) (*content.Corpus, *content.Manifest) {
	t.Helper()
	root := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}
	write("going-modular.md", `---
title: "Going Modular"
date: 2022-05-03T21:12:33+03:00
draft: false
tags:
  - kotlin
  - android
---

Words here to count for the statistics.
`)
	write("wip.md", `---
title: "Work in Progress"
date: 2023-01-10T08:00:00+01:00
draft: true
tags:
  - kotlin
---

Not done.
`)
	files, err := content.NewDiscovery(root).Discover()
	require.NoError(t, err)
	for i := range files {
		require.NoError(t, files[i].LoadContent())
	}
	corpus, err := content.BuildCorpus(root, files)
	require.NoError(t, err)
	return corpus, content.NewManifest(files)
}

func openIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func recordTestScan(t *testing.T, ix *Index, trigger string, at time.Time) *ScanRecord {
	t.Helper()
	corpus, manifest := testCorpus(t)
	record, err := ix.RecordScan(context.Background(), corpus, manifest, trigger, at, at.Add(2*time.Second))
	require.NoError(t, err)
	return record
}

func TestLatestScan_Empty(t *testing.T) {
	ix := openIndex(t)
	_, err := ix.LatestScan(context.Background())
	assert.ErrorIs(t, err, ErrNoScans)
}

func TestRecordScan_RoundTrip(t *testing.T) {
	ix := openIndex(t)
	started := time.Date(2023, 2, 1, 8, 0, 0, 0, time.UTC)

	record := recordTestScan(t, ix, "manual", started)
	require.NotEmpty(t, record.ID)
	assert.Equal(t, 2, record.PostsTotal)
	assert.Equal(t, 1, record.Published)
	assert.Equal(t, 1, record.Drafts)
	assert.NotEmpty(t, record.TreeHash)

	latest, err := ix.LatestScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, record.ID, latest.ID)
	assert.Equal(t, "manual", latest.Trigger)
	assert.Equal(t, started.Unix(), latest.StartedAt.Unix())

	posts, err := ix.PostsForScan(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	// Newest date first.
	assert.Equal(t, "wip", posts[0].Slug)
	assert.Equal(t, "going-modular", posts[1].Slug)
	assert.Equal(t, []string{"kotlin", "android"}, posts[1].Tags)
	assert.False(t, posts[1].Draft)
	assert.True(t, posts[0].Draft)
	assert.Positive(t, posts[1].WordCount)
	assert.NotEmpty(t, posts[1].ContentHash)
}

func TestFindPost(t *testing.T) {
	ix := openIndex(t)
	recordTestScan(t, ix, "manual", time.Now())

	p, err := ix.FindPost(context.Background(), "going-modular")
	require.NoError(t, err)
	assert.Equal(t, "Going Modular", p.Title)

	_, err = ix.FindPost(context.Background(), "nope")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	ix := openIndex(t)
	recordTestScan(t, ix, "schedule", time.Now())

	stats, err := ix.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PostsTotal)
	assert.Equal(t, 1, stats.Published)
	assert.Equal(t, 1, stats.ByYear[2022])
	assert.Equal(t, 1, stats.ByYear[2023])
	assert.Equal(t, 2, stats.TagCounts["kotlin"])
	assert.Equal(t, 1, stats.TagCounts["android"])
	assert.Positive(t, stats.WordsTotal)
}

func TestSaveLinkResults(t *testing.T) {
	ix := openIndex(t)
	record := recordTestScan(t, ix, "manual", time.Now())

	checked := time.Now()
	results := []linkcheck.Result{
		{URL: "https://example.com/ok", OK: true, Status: 200, CheckedAt: checked},
		{URL: "https://example.com/gone", OK: false, Status: 404, Error: "HTTP 404", Sources: []string{"wip.md"}, CheckedAt: checked},
		{URL: "/posts/skipped/", Internal: true, Skipped: true, CheckedAt: checked},
	}
	require.NoError(t, ix.SaveLinkResults(context.Background(), record.ID, results))

	all, err := ix.LinkResults(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, all, 2, "skipped results are not stored")
	assert.False(t, all[0].OK, "broken sorts first")

	broken, err := ix.BrokenLinks(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, "https://example.com/gone", broken[0].URL)
	assert.Equal(t, []string{"wip.md"}, broken[0].Sources)

	latestBroken, err := ix.LatestBrokenLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, broken, latestBroken)
}

func TestLatestBrokenLinks_SkipsScansWithoutLinkRun(t *testing.T) {
	ix := openIndex(t)
	older := recordTestScan(t, ix, "manual", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, ix.SaveLinkResults(context.Background(), older.ID, []linkcheck.Result{
		{URL: "https://example.com/gone", OK: false, Status: 404, CheckedAt: time.Now()},
	}))
	// Newer scan without any link results.
	recordTestScan(t, ix, "fs", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC))

	broken, err := ix.LatestBrokenLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.Equal(t, older.ID, broken[0].ScanID)
}

func TestPrune(t *testing.T) {
	ix := openIndex(t)
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 4 {
		record := recordTestScan(t, ix, "schedule", base.AddDate(0, 0, i))
		ids = append(ids, record.ID)
	}

	require.NoError(t, ix.Prune(context.Background(), 2))

	scans, err := ix.Scans(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, ids[3], scans[0].ID)
	assert.Equal(t, ids[2], scans[1].ID)

	posts, err := ix.PostsForScan(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Empty(t, posts, "pruned scans lose their posts")
}
