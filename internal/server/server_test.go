package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/lint"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

func writePost(t *testing.T, root, rel, body string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	root := t.TempDir()

	writePost(t, root, "posts/going-modular.md", `---
title: "Going Modular"
date: 2022-03-10T08:00:00+01:00
draft: false
tags:
  - kotlin
  - android
series: ["Tv Maniac Journey"]
---
## Why split the app

Breaking the monolith took three attempts. The first two taught me what not to share.

[Part two](/posts/going-modular-2/) has the gritty details.
`)
	writePost(t, root, "posts/going-modular-2.md", `---
title: "Going Modular, Part Two"
date: 2023-01-15T09:30:00+01:00
draft: false
tags: ["kotlin"]
series: ["Tv Maniac Journey"]
---
The gradle files tell the real story.
`)
	writePost(t, root, "posts/scribbles.md", `---
title: "Scribbles"
date: 2023-05-02T10:00:00+02:00
draft: true
---
Unfinished thoughts.
`)

	corpus, err := content.LoadCorpus(root)
	require.NoError(t, err)
	require.Equal(t, 3, corpus.Len())

	tax := taxonomy.Build(corpus.Posts(), map[string]string{"tag": "tags", "series": "series"})

	return &Snapshot{
		ScanID:    "scan-1",
		ScannedAt: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		Trigger:   "startup",
		Corpus:    corpus,
		Taxonomy:  tax,
		Lint: &lint.Result{
			FilesTotal: 3,
			Issues: []lint.Issue{
				{FilePath: "posts/scribbles.md", Severity: lint.SeverityWarning, Rule: "tags", Message: "Published post has no tags"},
			},
		},
		TreeHash: "abc123",
	}
}

func testServer(t *testing.T, snap *Snapshot) *httptest.Server {
	t.Helper()
	store := NewStore()
	if snap != nil {
		store.Set(snap)
	}
	srv := New(Options{}, store, nil, NewHub(nil))
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHandlePosts_DefaultExcludesDrafts(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var resp PostsResponse
	getJSON(t, ts.URL+"/api/posts", &resp)

	require.Equal(t, 2, resp.Count)
	// Corpus orders newest first.
	assert.Equal(t, "going-modular-2", resp.Posts[0].Slug)
	assert.Equal(t, "going-modular", resp.Posts[1].Slug)
	for _, p := range resp.Posts {
		assert.False(t, p.Draft)
		assert.Positive(t, p.Words)
	}
}

func TestHandlePosts_Filters(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var drafts PostsResponse
	getJSON(t, ts.URL+"/api/posts?drafts=only", &drafts)
	require.Equal(t, 1, drafts.Count)
	assert.Equal(t, "scribbles", drafts.Posts[0].Slug)

	var tagged PostsResponse
	getJSON(t, ts.URL+"/api/posts?tag=Android", &tagged)
	require.Equal(t, 1, tagged.Count)
	assert.Equal(t, "going-modular", tagged.Posts[0].Slug)

	var year PostsResponse
	getJSON(t, ts.URL+"/api/posts?year=2023", &year)
	require.Equal(t, 1, year.Count)

	var all PostsResponse
	getJSON(t, ts.URL+"/api/posts?drafts=1", &all)
	require.Equal(t, 3, all.Count)

	resp := getJSON(t, ts.URL+"/api/posts?year=banana", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlePostDetail(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var detail PostDetail
	resp := getJSON(t, ts.URL+"/api/posts/going-modular", &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Going Modular", detail.Title)
	assert.Equal(t, "/preview/going-modular", detail.PreviewURL)
	require.Len(t, detail.Headings, 1)
	assert.Equal(t, "Why split the app", detail.Headings[0].Text)

	missing := getJSON(t, ts.URL+"/api/posts/nope", nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestTaxonomyHandlers(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var tags TaxonomyResponse
	getJSON(t, ts.URL+"/api/tags", &tags)
	assert.Equal(t, "tags", tags.Taxonomy)
	require.Equal(t, 2, tags.Count)

	byName := map[string]TermSummary{}
	for _, term := range tags.Terms {
		byName[term.Name] = term
	}
	assert.Equal(t, 2, byName["kotlin"].Count)
	assert.Equal(t, 1, byName["android"].Count)

	var series TaxonomyResponse
	getJSON(t, ts.URL+"/api/series?posts=1", &series)
	require.Equal(t, 1, series.Count)
	assert.Equal(t, "Tv Maniac Journey", series.Terms[0].Name)
	assert.ElementsMatch(t, []string{"going-modular", "going-modular-2"}, series.Terms[0].Posts)
}

func TestHandleStats(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var stats StatsResponse
	getJSON(t, ts.URL+"/api/stats", &stats)
	assert.Equal(t, 3, stats.PostsTotal)
	assert.Equal(t, 2, stats.Published)
	assert.Equal(t, 1, stats.Drafts)
	assert.Equal(t, 1, stats.ByYear["2022"])
	assert.Equal(t, 2, stats.ByYear["2023"])
	assert.Equal(t, 2, stats.Tags)
	assert.Equal(t, 1, stats.Series)
	assert.Positive(t, stats.WordsTotal)
}

func TestHandleIssues(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var out lint.JSONOutput
	getJSON(t, ts.URL+"/api/issues", &out)
	assert.Equal(t, 3, out.FilesTotal)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, "warning", out.Issues[0].Severity)
	assert.Equal(t, "tags", out.Issues[0].Rule)
}

func TestHandleHealth(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	var health HealthResponse
	getJSON(t, ts.URL+"/healthz", &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "scan-1", health.ScanID)
	require.NotNil(t, health.LastScanAt)
}

func TestSnapshotUnavailable(t *testing.T) {
	ts := testServer(t, nil)

	for _, path := range []string{"/api/posts", "/api/stats", "/api/tags", "/preview/x"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}

	// Health stays up even before the first scan.
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleRescan(t *testing.T) {
	store := NewStore()
	store.Set(testSnapshot(t))

	triggered := make(chan struct{}, 1)
	srv := New(Options{Rescan: func() { triggered <- struct{}{} }}, store, nil, NewHub(nil))
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/api/rescan", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case <-triggered:
	case <-time.After(2 * time.Second):
		t.Fatal("rescan callback never ran")
	}

	// GET is not allowed on the trigger.
	getResp, err := http.Get(ts.URL + "/api/rescan")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestHandlePreview(t *testing.T) {
	ts := testServer(t, testSnapshot(t))

	resp, err := http.Get(ts.URL + "/preview/going-modular")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	body := sb.String()
	assert.Contains(t, body, "<h1>Going Modular</h1>")
	assert.Contains(t, body, "Why split the app")
	assert.Contains(t, body, `href="/posts/going-modular-2/"`)
	assert.Contains(t, body, "EventSource('/events')")
	assert.NotContains(t, body, ">draft</span>")

	// The contents anchor must match the id the renderer gave the heading.
	assert.Contains(t, body, `class="toc"`)
	assert.Contains(t, body, `href="#why-split-the-app"`)
	assert.Contains(t, body, `<h2 id="why-split-the-app">`)
}

func TestHandlePreview_HideToc(t *testing.T) {
	root := t.TempDir()
	writePost(t, root, "posts/long-read.md", `---
title: "Long Read"
date: 2023-04-01T08:00:00+02:00
draft: false
hideToc: true
tags: ["kotlin"]
---
## First section

Text.

## Second section

More text.
`)
	corpus, err := content.LoadCorpus(root)
	require.NoError(t, err)
	snap := &Snapshot{
		ScanID:   "scan-t",
		Trigger:  "manual",
		Corpus:   corpus,
		Taxonomy: taxonomy.Build(corpus.Posts(), map[string]string{"tag": "tags"}),
		Lint:     &lint.Result{FilesTotal: 1},
		TreeHash: "t1",
	}
	ts := testServer(t, snap)

	resp, err := http.Get(ts.URL + "/preview/long-read")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.NotContains(t, body, `class="toc"`)
	assert.Contains(t, body, `<h2 id="first-section">`)
}

func TestEvents_BroadcastReachesClient(t *testing.T) {
	store := NewStore()
	store.Set(testSnapshot(t))
	hub := NewHub(nil)
	srv := New(Options{}, store, nil, hub)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected", strings.TrimSpace(line))

	// Wait for the subscription to be registered before broadcasting.
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: "scan", Data: ScanEvent{ScanID: "scan-2", TreeHash: "def456", Posts: 3}})

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			break
		}
	}

	var ev struct {
		Type string    `json:"type"`
		Data ScanEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "scan", ev.Type)
	assert.Equal(t, "scan-2", ev.Data.ScanID)
	assert.Equal(t, "def456", ev.Data.TreeHash)
}

func TestEvents_ReplaysLastScanToNewClient(t *testing.T) {
	hub := NewHub(nil)
	srv := New(Options{}, NewStore(), nil, hub)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	hub.Broadcast(Event{Type: "scan", Data: ScanEvent{ScanID: "scan-9", TreeHash: "zzz"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			assert.Contains(t, line, "scan-9")
			return
		}
	}
}
