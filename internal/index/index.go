// Package index keeps scan history in SQLite: what the content tree looked
// like at each scan, and how its links fared. The serve and stats commands
// read from here instead of re-walking the tree.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
)

// ErrNoScans is returned by queries that need at least one recorded scan.
var ErrNoScans = errors.New("no scans recorded")

// Index is the SQLite-backed scan store. Use ":memory:" for throwaway
// indexes in tests and one-shot runs.
type Index struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	// modernc sqlite serializes writes; one connection avoids table locks.
	db.SetMaxOpenConns(1)

	ix := &Index{db: db}
	if err := ix.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return ix, nil
}

func (ix *Index) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		trigger TEXT NOT NULL,
		tree_hash TEXT NOT NULL,
		posts_total INTEGER NOT NULL,
		published INTEGER NOT NULL,
		drafts INTEGER NOT NULL,
		parse_failures INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);

	CREATE TABLE IF NOT EXISTS posts (
		scan_id TEXT NOT NULL,
		path TEXT NOT NULL,
		relative_path TEXT NOT NULL,
		slug TEXT NOT NULL,
		section TEXT NOT NULL,
		title TEXT NOT NULL,
		date INTEGER,
		draft INTEGER NOT NULL,
		hide_toc INTEGER NOT NULL,
		tags TEXT NOT NULL,
		series TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		reading_time INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		PRIMARY KEY (scan_id, relative_path)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_slug ON posts(slug);

	CREATE TABLE IF NOT EXISTS link_results (
		scan_id TEXT NOT NULL,
		url TEXT NOT NULL,
		internal INTEGER NOT NULL,
		status INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT,
		sources TEXT NOT NULL,
		checked_at INTEGER NOT NULL,
		PRIMARY KEY (scan_id, url)
	);
	`
	_, err := ix.db.Exec(schema)
	return err
}

// ScanRecord is one recorded scan of the content tree.
type ScanRecord struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Trigger       string    `json:"trigger"`
	TreeHash      string    `json:"tree_hash"`
	PostsTotal    int       `json:"posts_total"`
	Published     int       `json:"published"`
	Drafts        int       `json:"drafts"`
	ParseFailures int       `json:"parse_failures"`
}

// PostRecord is one post as seen by a scan.
type PostRecord struct {
	ScanID       string    `json:"-"`
	Path         string    `json:"-"`
	RelativePath string    `json:"relative_path"`
	Slug         string    `json:"slug"`
	Section      string    `json:"section,omitempty"`
	Title        string    `json:"title"`
	Date         time.Time `json:"date,omitzero"`
	Draft        bool      `json:"draft"`
	HideToc      bool      `json:"hideToc,omitempty"`
	Tags         []string  `json:"tags"`
	Series       []string  `json:"series,omitempty"`
	WordCount    int       `json:"word_count"`
	ReadingTime  int       `json:"reading_time"`
	ContentHash  string    `json:"-"`
}

// RecordScan stores a scan of the corpus and returns the new record. The
// scan ID is a fresh UUID; callers use it to attach link results.
func (ix *Index) RecordScan(ctx context.Context, corpus *content.Corpus, manifest *content.Manifest, trigger string, started, finished time.Time) (*ScanRecord, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	record := &ScanRecord{
		ID:            uuid.NewString(),
		StartedAt:     started,
		FinishedAt:    finished,
		Trigger:       trigger,
		PostsTotal:    corpus.Len(),
		Published:     len(corpus.Published()),
		Drafts:        len(corpus.Drafts()),
		ParseFailures: len(corpus.Failures()),
	}
	if manifest != nil {
		record.TreeHash = manifest.Hash
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin scan transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scans (id, started_at, finished_at, trigger, tree_hash, posts_total, published, drafts, parse_failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.StartedAt.Unix(), record.FinishedAt.Unix(), record.Trigger,
		record.TreeHash, record.PostsTotal, record.Published, record.Drafts, record.ParseFailures,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	hashes := map[string]string{}
	if manifest != nil {
		for _, f := range manifest.Files {
			hashes[f.RelativePath] = f.ContentHash
		}
	}

	for _, p := range corpus.Posts() {
		tags, err := jsonList(p.Meta.Tags)
		if err != nil {
			return nil, err
		}
		series, err := jsonList(p.Meta.Series)
		if err != nil {
			return nil, err
		}
		var date sql.NullInt64
		if !p.Meta.Date.IsZero() {
			date = sql.NullInt64{Int64: p.Meta.Date.Unix(), Valid: true}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO posts (scan_id, path, relative_path, slug, section, title, date, draft, hide_toc, tags, series, word_count, reading_time, content_hash)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, p.Path, p.RelativePath, p.Slug, p.Section, p.Meta.Title,
			date, boolInt(p.Meta.Draft), boolInt(p.Meta.HideToc),
			tags, series, p.WordCount(), p.ReadingTime(), hashes[p.RelativePath],
		)
		if err != nil {
			return nil, fmt.Errorf("insert post %s: %w", p.RelativePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scan: %w", err)
	}
	return record, nil
}

// LatestScan returns the most recent scan, or ErrNoScans.
func (ix *Index) LatestScan(ctx context.Context) (*ScanRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	row := ix.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, trigger, tree_hash, posts_total, published, drafts, parse_failures
		 FROM scans ORDER BY started_at DESC, id DESC LIMIT 1`)
	return scanRecordFromRow(row)
}

// Scans returns up to limit scans, newest first.
func (ix *Index) Scans(ctx context.Context, limit int) ([]ScanRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := ix.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, trigger, tree_hash, posts_total, published, drafts, parse_failures
		 FROM scans ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var startedUnix, finishedUnix int64
		if err := rows.Scan(&r.ID, &startedUnix, &finishedUnix, &r.Trigger, &r.TreeHash,
			&r.PostsTotal, &r.Published, &r.Drafts, &r.ParseFailures); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.StartedAt = time.Unix(startedUnix, 0)
		r.FinishedAt = time.Unix(finishedUnix, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return out, nil
}

// PostsForScan returns the posts a scan saw, newest date first.
func (ix *Index) PostsForScan(ctx context.Context, scanID string) ([]PostRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.queryPosts(ctx,
		`SELECT scan_id, path, relative_path, slug, section, title, date, draft, hide_toc, tags, series, word_count, reading_time, content_hash
		 FROM posts WHERE scan_id = ? ORDER BY date DESC, slug ASC`, scanID)
}

// LatestPosts returns the posts of the most recent scan.
func (ix *Index) LatestPosts(ctx context.Context) ([]PostRecord, error) {
	latest, err := ix.LatestScan(ctx)
	if err != nil {
		return nil, err
	}
	return ix.PostsForScan(ctx, latest.ID)
}

// FindPost looks a slug up in the most recent scan.
func (ix *Index) FindPost(ctx context.Context, slug string) (*PostRecord, error) {
	latest, err := ix.LatestScan(ctx)
	if err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	posts, err := ix.queryPosts(ctx,
		`SELECT scan_id, path, relative_path, slug, section, title, date, draft, hide_toc, tags, series, word_count, reading_time, content_hash
		 FROM posts WHERE scan_id = ? AND slug = ? LIMIT 1`, latest.ID, slug)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, sql.ErrNoRows
	}
	return &posts[0], nil
}

func (ix *Index) queryPosts(ctx context.Context, query string, args ...any) ([]PostRecord, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var out []PostRecord
	for rows.Next() {
		var r PostRecord
		var date sql.NullInt64
		var draft, hideToc int
		var tags, series string
		if err := rows.Scan(&r.ScanID, &r.Path, &r.RelativePath, &r.Slug, &r.Section, &r.Title,
			&date, &draft, &hideToc, &tags, &series, &r.WordCount, &r.ReadingTime, &r.ContentHash); err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		if date.Valid {
			r.Date = time.Unix(date.Int64, 0)
		}
		r.Draft = draft != 0
		r.HideToc = hideToc != 0
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", r.RelativePath, err)
		}
		if err := json.Unmarshal([]byte(series), &r.Series); err != nil {
			return nil, fmt.Errorf("decode series for %s: %w", r.RelativePath, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

// Stats summarizes the latest scan.
type Stats struct {
	ScanID     string         `json:"scan_id"`
	ScannedAt  time.Time      `json:"scanned_at"`
	PostsTotal int            `json:"posts_total"`
	Published  int            `json:"published"`
	Drafts     int            `json:"drafts"`
	ByYear     map[int]int    `json:"by_year"`
	TagCounts  map[string]int `json:"tag_counts"`
	WordsTotal int            `json:"words_total"`
}

// Stats computes summary numbers from the most recent scan.
func (ix *Index) Stats(ctx context.Context) (*Stats, error) {
	latest, err := ix.LatestScan(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := ix.PostsForScan(ctx, latest.ID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ScanID:     latest.ID,
		ScannedAt:  latest.FinishedAt,
		PostsTotal: latest.PostsTotal,
		Published:  latest.Published,
		Drafts:     latest.Drafts,
		ByYear:     map[int]int{},
		TagCounts:  map[string]int{},
	}
	for _, p := range posts {
		if !p.Date.IsZero() {
			stats.ByYear[p.Date.Year()]++
		}
		for _, tag := range p.Tags {
			stats.TagCounts[tag]++
		}
		stats.WordsTotal += p.WordCount
	}
	return stats, nil
}

// Prune keeps the newest n scans and drops everything older, posts and link
// results included.
func (ix *Index) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const keepQuery = `SELECT id FROM scans ORDER BY started_at DESC, id DESC LIMIT ?`
	for _, stmt := range []string{
		`DELETE FROM posts WHERE scan_id NOT IN (` + keepQuery + `)`,
		`DELETE FROM link_results WHERE scan_id NOT IN (` + keepQuery + `)`,
		`DELETE FROM scans WHERE id NOT IN (` + keepQuery + `)`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, keep); err != nil {
			return fmt.Errorf("prune: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.db.Close()
}

func scanRecordFromRow(row *sql.Row) (*ScanRecord, error) {
	var r ScanRecord
	var startedUnix, finishedUnix int64
	err := row.Scan(&r.ID, &startedUnix, &finishedUnix, &r.Trigger, &r.TreeHash,
		&r.PostsTotal, &r.Published, &r.Drafts, &r.ParseFailures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoScans
	}
	if err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	r.StartedAt = time.Unix(startedUnix, 0)
	r.FinishedAt = time.Unix(finishedUnix, 0)
	return &r, nil
}

func jsonList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(data), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
