package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/linkcheck"
)

// LinkRecord is one stored link verification outcome.
type LinkRecord struct {
	ScanID    string    `json:"-"`
	URL       string    `json:"url"`
	Internal  bool      `json:"internal"`
	Status    int       `json:"status,omitempty"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// SaveLinkResults attaches a link check report to a scan. Skipped results
// are not stored; they say nothing about the link.
func (ix *Index) SaveLinkResults(ctx context.Context, scanID string, results []linkcheck.Result) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link results: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range results {
		if r.Skipped {
			continue
		}
		sources, err := jsonList(r.Sources)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO link_results (scan_id, url, internal, status, ok, error, sources, checked_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			scanID, r.URL, boolInt(r.Internal), r.Status, boolInt(r.OK), r.Error, sources, r.CheckedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert link result %s: %w", r.URL, err)
		}
	}
	return tx.Commit()
}

// LinkResults returns the stored results for one scan, broken first.
func (ix *Index) LinkResults(ctx context.Context, scanID string) ([]LinkRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.queryLinks(ctx,
		`SELECT scan_id, url, internal, status, ok, error, sources, checked_at
		 FROM link_results WHERE scan_id = ? ORDER BY ok ASC, url ASC`, scanID)
}

// BrokenLinks returns the failing links of one scan.
func (ix *Index) BrokenLinks(ctx context.Context, scanID string) ([]LinkRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.queryLinks(ctx,
		`SELECT scan_id, url, internal, status, ok, error, sources, checked_at
		 FROM link_results WHERE scan_id = ? AND ok = 0 ORDER BY url ASC`, scanID)
}

// LatestBrokenLinks returns the broken links of the newest scan that has
// link results at all; scans without a link run are skipped.
func (ix *Index) LatestBrokenLinks(ctx context.Context) ([]LinkRecord, error) {
	ix.mu.RLock()
	row := ix.db.QueryRowContext(ctx,
		`SELECT s.id FROM scans s
		 WHERE EXISTS (SELECT 1 FROM link_results l WHERE l.scan_id = s.id)
		 ORDER BY s.started_at DESC, s.id DESC LIMIT 1`)
	var scanID string
	err := row.Scan(&scanID)
	ix.mu.RUnlock()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoScans
		}
		return nil, fmt.Errorf("find latest link scan: %w", err)
	}
	return ix.BrokenLinks(ctx, scanID)
}

func (ix *Index) queryLinks(ctx context.Context, query string, args ...any) ([]LinkRecord, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query link results: %w", err)
	}
	defer rows.Close()

	var out []LinkRecord
	for rows.Next() {
		var r LinkRecord
		var internal, ok int
		var errMsg sql.NullString
		var sources string
		var checkedUnix int64
		if err := rows.Scan(&r.ScanID, &r.URL, &internal, &r.Status, &ok, &errMsg, &sources, &checkedUnix); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		r.Internal = internal != 0
		r.OK = ok != 0
		r.Error = errMsg.String
		r.CheckedAt = time.Unix(checkedUnix, 0)
		if err := json.Unmarshal([]byte(sources), &r.Sources); err != nil {
			return nil, fmt.Errorf("decode sources for %s: %w", r.URL, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link results: %w", err)
	}
	return out, nil
}
