package server

import (
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
)

// HealthResponse reports process health and the state of the last scan.
type HealthResponse struct {
	Status        string     `json:"status"`
	Timestamp     time.Time  `json:"timestamp"`
	Version       string     `json:"version"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	ScanID        string     `json:"scan_id,omitempty"`
	LastScanAt    *time.Time `json:"last_scan_at,omitempty"`
	EventClients  int        `json:"event_clients"`
}

// PostSummary is the list view of a post.
type PostSummary struct {
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Section     string    `json:"section,omitempty"`
	Path        string    `json:"path"`
	Date        time.Time `json:"date"`
	Draft       bool      `json:"draft"`
	Tags        []string  `json:"tags,omitempty"`
	Series      []string  `json:"series,omitempty"`
	Words       int       `json:"words"`
	ReadingTime int       `json:"reading_time_minutes"`
}

// PostDetail extends the summary with structure and problems.
type PostDetail struct {
	PostSummary
	HideToc     bool           `json:"hide_toc,omitempty"`
	Headings    []post.Heading `json:"headings,omitempty"`
	FieldErrors []string       `json:"field_errors,omitempty"`
	PreviewURL  string         `json:"preview_url"`
}

// PostsResponse wraps the post list.
type PostsResponse struct {
	Count int           `json:"count"`
	Posts []PostSummary `json:"posts"`
}

// TermSummary is one taxonomy term with its usage count.
type TermSummary struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Variants []string `json:"variants,omitempty"`
	Posts    []string `json:"posts,omitempty"`
}

// TaxonomyResponse wraps a taxonomy listing.
type TaxonomyResponse struct {
	Taxonomy string        `json:"taxonomy"`
	Count    int           `json:"count"`
	Terms    []TermSummary `json:"terms"`
}

// StatsResponse aggregates corpus numbers for dashboards.
type StatsResponse struct {
	ScanID        string         `json:"scan_id,omitempty"`
	ScannedAt     *time.Time     `json:"scanned_at,omitempty"`
	PostsTotal    int            `json:"posts_total"`
	Published     int            `json:"published"`
	Drafts        int            `json:"drafts"`
	Sections      []string       `json:"sections,omitempty"`
	ByYear        map[string]int `json:"by_year,omitempty"`
	Tags          int            `json:"tags"`
	Series        int            `json:"series"`
	WordsTotal    int            `json:"words_total"`
	ParseFailures int            `json:"parse_failures,omitempty"`
}

// BrokenLinksResponse wraps the broken-link listing. Checked is false when
// no link verification has run yet.
type BrokenLinksResponse struct {
	Checked bool               `json:"checked"`
	ScanID  string             `json:"scan_id,omitempty"`
	Count   int                `json:"count"`
	Links   []index.LinkRecord `json:"links"`
}

// RescanResponse acknowledges a manual rescan request.
type RescanResponse struct {
	Status  string `json:"status"`
	Trigger string `json:"trigger"`
}
