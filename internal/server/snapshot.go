// Package server exposes the authoring API: JSON endpoints over the scanned
// content tree, rendered previews, an SSE event stream, and Prometheus
// metrics.
package server

import (
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/lint"
	"git.home.luguber.info/inful/blogkeeper/internal/site"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

// Snapshot is one consistent view of the blog, produced by a scan. Handlers
// read whole snapshots; a rescan swaps in a new one.
type Snapshot struct {
	ScanID    string
	ScannedAt time.Time
	Trigger   string

	Corpus   *content.Corpus
	Site     *site.Config
	SiteErr  error
	Taxonomy *taxonomy.Index
	Lint     *lint.Result
	TreeHash string
}

// Store holds the current snapshot. Reads never block writes.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store. Get returns nil until the first Set.
func NewStore() *Store {
	return &Store{}
}

// Set publishes a new snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.current.Store(snap)
}

// Get returns the current snapshot, or nil before the first scan completes.
func (s *Store) Get() *Snapshot {
	return s.current.Load()
}
