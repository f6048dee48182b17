package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	kerrors "git.home.luguber.info/inful/blogkeeper/internal/errors"
	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/lint"
	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
	"git.home.luguber.info/inful/blogkeeper/internal/version"
)

// writeJSON serializes v into a buffer first so a failed encode never sends
// a partial response.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

// writeJSONPretty pretty prints when the pretty=1 query parameter is set.
func writeJSONPretty(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
		b, err := json.MarshalIndent(v, "", "  ")
		if err == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			if _, werr := w.Write(append(b, '\n')); werr != nil {
				slog.Error("failed writing pretty JSON", logfields.Error(werr))
				return werr
			}
			return nil
		}
		slog.Warn("pretty JSON marshal failed, falling back to compact", logfields.Error(err))
	}
	return writeJSON(w, status, v)
}

// snapshot fetches the current scan view, writing 503 when no scan has
// completed yet.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*Snapshot, bool) {
	snap := s.store.Get()
	if snap == nil {
		err := kerrors.New(kerrors.CategoryServer, kerrors.SeverityWarning, "no scan has completed yet")
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return nil, false
	}
	return snap, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		Version:       version.Version,
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		EventClients:  s.hub.ClientCount(),
	}
	if snap := s.store.Get(); snap != nil {
		health.ScanID = snap.ScanID
		at := snap.ScannedAt
		health.LastScanAt = &at
	}
	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write health response"))
	}
}

func summarize(p *post.Post) PostSummary {
	return PostSummary{
		Title:       p.Meta.Title,
		Slug:        p.Slug,
		Section:     p.Section,
		Path:        p.RelativePath,
		Date:        p.Meta.Date,
		Draft:       p.Meta.Draft,
		Tags:        p.Meta.Tags,
		Series:      p.Meta.Series,
		Words:       p.WordCount(),
		ReadingTime: p.ReadingTime(),
	}
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var posts []*post.Post
	switch q.Get("drafts") {
	case "only":
		posts = snap.Corpus.Drafts()
	case "1", "true", "include":
		posts = snap.Corpus.Posts()
	default:
		posts = snap.Corpus.Published()
	}

	tag := q.Get("tag")
	series := q.Get("series")
	section := q.Get("section")
	search := strings.ToLower(q.Get("q"))
	year := 0
	if y := q.Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			s.errorAdapter.WriteErrorResponse(w, r, kerrors.ValidationError("year must be a number").WithContext("year", y))
			return
		}
		year = n
	}

	resp := PostsResponse{Posts: []PostSummary{}}
	for _, p := range posts {
		if tag != "" && !containsFold(p.Meta.Tags, tag) {
			continue
		}
		if series != "" && !containsFold(p.Meta.Series, series) {
			continue
		}
		if section != "" && !strings.EqualFold(p.Section, section) {
			continue
		}
		if year != 0 && p.Year() != year {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Meta.Title), search) {
			continue
		}
		resp.Posts = append(resp.Posts, summarize(p))
	}
	resp.Count = len(resp.Posts)

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write posts response"))
	}
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func (s *Server) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	slug := r.PathValue("slug")
	p := snap.Corpus.Find(slug)
	if p == nil {
		http.NotFound(w, r)
		return
	}

	detail := PostDetail{
		PostSummary: summarize(p),
		HideToc:     p.Meta.HideToc,
		Headings:    p.Headings(),
		PreviewURL:  "/preview/" + p.Slug,
	}
	for _, fe := range p.FieldErrors {
		detail.FieldErrors = append(detail.FieldErrors, fe.String())
	}

	if err := writeJSONPretty(w, r, http.StatusOK, detail); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write post response"))
	}
}

// taxonomyHandler serves term listings for one taxonomy ("tags", "series").
func (s *Server) taxonomyHandler(taxonomy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := s.snapshot(w, r)
		if !ok {
			return
		}

		withPosts := r.URL.Query().Get("posts") == "1"
		resp := TaxonomyResponse{Taxonomy: taxonomy, Terms: []TermSummary{}}
		for _, term := range snap.Taxonomy.Terms(taxonomy) {
			ts := TermSummary{Name: term.Name, Count: term.Count()}
			if len(term.Variants) > 1 {
				ts.Variants = term.Variants
			}
			if withPosts {
				for _, p := range term.Posts {
					ts.Posts = append(ts.Posts, p.Slug)
				}
			}
			resp.Terms = append(resp.Terms, ts)
		}
		resp.Count = len(resp.Terms)

		if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
			s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write taxonomy response"))
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	at := snap.ScannedAt
	resp := StatsResponse{
		ScanID:        snap.ScanID,
		ScannedAt:     &at,
		PostsTotal:    snap.Corpus.Len(),
		Published:     len(snap.Corpus.Published()),
		Drafts:        len(snap.Corpus.Drafts()),
		Sections:      snap.Corpus.Sections(),
		ByYear:        map[string]int{},
		Tags:          snap.Taxonomy.TermCount("tags"),
		Series:        snap.Taxonomy.TermCount("series"),
		ParseFailures: len(snap.Corpus.Failures()),
	}
	for year, posts := range snap.Corpus.ByYear() {
		resp.ByYear[strconv.Itoa(year)] = len(posts)
	}
	for _, p := range snap.Corpus.Posts() {
		resp.WordsTotal += p.WordCount()
	}

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write stats response"))
	}
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if snap.Lint == nil {
		s.errorAdapter.WriteErrorResponse(w, r,
			kerrors.New(kerrors.CategoryServer, kerrors.SeverityWarning, "lint has not run yet"))
		return
	}

	out := lint.JSONOutputFrom(snap.Lint, "")
	if err := writeJSONPretty(w, r, http.StatusOK, out); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write issues response"))
	}
}

func (s *Server) handleBrokenLinks(w http.ResponseWriter, r *http.Request) {
	if s.idx == nil {
		s.errorAdapter.WriteErrorResponse(w, r,
			kerrors.New(kerrors.CategoryServer, kerrors.SeverityWarning, "link results need the index, which is disabled"))
		return
	}

	resp := BrokenLinksResponse{Links: []index.LinkRecord{}}
	scanID, links, err := s.latestBrokenLinks(r)
	switch {
	case stderrors.Is(err, index.ErrNoScans):
		// leave Checked false
	case err != nil:
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryIndex, "failed to load link results"))
		return
	default:
		resp.Checked = true
		resp.ScanID = scanID
		resp.Links = links
		resp.Count = len(links)
	}

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write links response"))
	}
}

func (s *Server) latestBrokenLinks(r *http.Request) (string, []index.LinkRecord, error) {
	links, err := s.idx.LatestBrokenLinks(r.Context())
	if err != nil {
		return "", nil, err
	}
	scanID := ""
	if len(links) > 0 {
		scanID = links[0].ScanID
	}
	return scanID, links, nil
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if s.rescan == nil {
		s.errorAdapter.WriteErrorResponse(w, r,
			kerrors.New(kerrors.CategoryServer, kerrors.SeverityWarning, "rescans are not enabled"))
		return
	}

	go s.rescan()
	if err := writeJSON(w, http.StatusAccepted, RescanResponse{Status: "accepted", Trigger: "manual"}); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, kerrors.WrapError(err, kerrors.CategoryInternal, "failed to write rescan response"))
	}
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	routes := []string{
		"GET  /healthz",
		"GET  /metrics",
		"GET  /api/posts",
		"GET  /api/posts/{slug}",
		"GET  /api/tags",
		"GET  /api/series",
		"GET  /api/stats",
		"GET  /api/issues",
		"GET  /api/links/broken",
		"POST /api/rescan",
		"GET  /events",
		"GET  /preview/{slug}",
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, route := range routes {
		w.Write([]byte(route + "\n"))
	}
}
