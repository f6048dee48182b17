package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
	"git.home.luguber.info/inful/blogkeeper/internal/metrics"
)

// Options tunes a Checker. Zero values fall back to usable defaults.
type Options struct {
	MaxConcurrent   int
	RequestTimeout  time.Duration
	RateLimitDelay  time.Duration
	FollowRedirects bool
	MaxRedirects    int
	UserAgent       string
	ScanID          string
}

const defaultUserAgent = "blogkeeper-linkcheck/1.0"

func (o *Options) fillDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 10
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.RateLimitDelay < 0 {
		o.RateLimitDelay = 0
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = 10
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
}

// Result is the outcome for one distinct URL.
type Result struct {
	URL       string    `json:"url"`
	Internal  bool      `json:"internal"`
	Status    int       `json:"status,omitempty"`
	OK        bool      `json:"ok"`
	Cached    bool      `json:"cached,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Report is one full verification run.
type Report struct {
	Results  []Result      `json:"results"`
	Duration time.Duration `json:"-"`
}

// Broken returns the failed results.
func (r *Report) Broken() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK && !res.Skipped {
			out = append(out, res)
		}
	}
	return out
}

// OKCount counts successful results.
func (r *Report) OKCount() int {
	n := 0
	for _, res := range r.Results {
		if res.OK {
			n++
		}
	}
	return n
}

// Checker verifies link refs with bounded concurrency. One check run at a
// time; the daemon's scheduler assumes runs never overlap.
type Checker struct {
	opts    Options
	cache   Cache
	client  *http.Client
	rec     metrics.Recorder
	resolve func(Ref) bool

	mu      sync.Mutex
	running bool
	sem     chan struct{}
}

// New creates a Checker. resolve answers whether an internal site path
// exists; nil means internal links are skipped. A nil cache gets a memory
// cache that never considers entries fresh.
func New(opts Options, cache Cache, rec metrics.Recorder, resolve func(Ref) bool) *Checker {
	opts.fillDefaults()
	if cache == nil {
		cache = NewMemoryCache(0, 0)
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	client := &http.Client{
		Timeout:   opts.RequestTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !opts.FollowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) >= opts.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", opts.MaxRedirects)
			}
			return nil
		},
	}

	return &Checker{
		opts:    opts,
		cache:   cache,
		client:  client,
		rec:     rec,
		resolve: resolve,
		sem:     make(chan struct{}, opts.MaxConcurrent),
	}
}

// ErrAlreadyRunning is returned when a second Check starts before the first
// finishes.
var ErrAlreadyRunning = errors.New("link check already running")

// Check verifies every ref and returns the collected report.
func (c *Checker) Check(ctx context.Context, refs []Ref) (*Report, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	slog.Info("Starting link check", logfields.Count(len(refs)), logfields.ScanID(c.opts.ScanID))
	started := time.Now()

	results := make([]Result, len(refs))
	var wg sync.WaitGroup

loop:
	for i, ref := range refs {
		if ref.Internal {
			results[i] = c.checkInternal(ref)
			continue
		}

		if c.opts.RateLimitDelay > 0 {
			time.Sleep(c.opts.RateLimitDelay)
		}
		select {
		case <-ctx.Done():
			// Everything at or past i was never dispatched.
			for j := i; j < len(refs); j++ {
				results[j] = Result{URL: refs[j].URL, Internal: refs[j].Internal, Skipped: true, Sources: refs[j].Sources}
			}
			break loop
		case c.sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, ref Ref) {
			defer wg.Done()
			defer func() { <-c.sem }()
			results[i] = c.checkExternal(ctx, ref)
		}(i, ref)
	}
	wg.Wait()

	report := &Report{Results: results, Duration: time.Since(started)}
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].URL < report.Results[j].URL
	})

	c.rec.ObserveLinkCheckDuration(report.Duration)
	c.rec.SetBrokenLinks(len(report.Broken()))

	slog.Info("Link check finished",
		logfields.Count(len(report.Results)),
		slog.Int("broken", len(report.Broken())),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, ctx.Err()
}

func (c *Checker) checkInternal(ref Ref) Result {
	result := Result{URL: ref.URL, Internal: true, Sources: ref.Sources, CheckedAt: time.Now()}
	if c.resolve == nil {
		result.Skipped = true
		c.rec.IncLinkResult("skipped")
		return result
	}
	if c.resolve(ref) {
		result.OK = true
		c.rec.IncLinkResult("ok")
		return result
	}
	result.Error = "no such page on this site"
	c.rec.IncLinkResult("broken")
	return result
}

func (c *Checker) checkExternal(ctx context.Context, ref Ref) Result {
	result := Result{URL: ref.URL, Sources: ref.Sources, CheckedAt: time.Now()}

	cached, err := c.cache.Get(ctx, ref.URL)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		slog.Debug("Link cache lookup failed", logfields.URL(ref.URL), logfields.Error(err))
	}
	if cached != nil && c.cache.Valid(cached) {
		result.Status = cached.Status
		result.OK = cached.IsValid
		result.Cached = true
		result.Error = cached.Error
		result.CheckedAt = cached.LastChecked
		c.rec.IncLinkResult("cached")
		if !cached.IsValid {
			c.publishBroken(ctx, ref, cached)
		}
		return result
	}

	status, checkErr := c.request(ctx, ref.URL)
	result.Status = status

	entry := &CacheEntry{
		URL:         ref.URL,
		Status:      status,
		IsValid:     checkErr == nil,
		LastChecked: time.Now(),
	}
	if checkErr != nil {
		result.Error = checkErr.Error()
		entry.Error = checkErr.Error()
		trackFailure(entry, cached)
		c.publishBroken(ctx, ref, entry)
		if status == 0 {
			c.rec.IncLinkResult("error")
		} else {
			c.rec.IncLinkResult("broken")
		}
	} else {
		result.OK = true
		c.rec.IncLinkResult("ok")
	}

	if err := c.cache.Set(ctx, entry); err != nil {
		slog.Warn("Link cache update failed", logfields.URL(ref.URL), logfields.Error(err))
	}
	return result
}

// request performs HEAD first and falls back to GET for servers that reject
// HEAD outright.
func (c *Checker) request(ctx context.Context, url string) (int, error) {
	status, err := c.do(ctx, http.MethodHead, url)
	if err != nil && status == 0 {
		return c.do(ctx, http.MethodGet, url)
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		return c.do(ctx, http.MethodGet, url)
	}
	return status, err
}

func (c *Checker) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	// A URL behind auth exists; that is not a broken link.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return resp.StatusCode, nil
}

func trackFailure(entry, cached *CacheEntry) {
	if cached != nil {
		entry.FailureCount = cached.FailureCount + 1
		entry.FirstFailedAt = cached.FirstFailedAt
	} else {
		entry.FailureCount = 1
	}
	if entry.FirstFailedAt.IsZero() {
		entry.FirstFailedAt = entry.LastChecked
	}
	entry.ConsecutiveFail = true
}

func (c *Checker) publishBroken(ctx context.Context, ref Ref, entry *CacheEntry) {
	event := &BrokenLinkEvent{
		URL:           ref.URL,
		Status:        entry.Status,
		Error:         entry.Error,
		IsInternal:    ref.Internal,
		Sources:       ref.Sources,
		ScanID:        c.opts.ScanID,
		Timestamp:     time.Now(),
		LastChecked:   entry.LastChecked,
		FailureCount:  entry.FailureCount,
		FirstFailedAt: entry.FirstFailedAt,
	}
	if err := c.cache.PublishBroken(ctx, event); err != nil {
		slog.Error("Broken link event publish failed", logfields.URL(ref.URL), logfields.Error(err))
		return
	}
	slog.Warn("Broken link",
		logfields.URL(ref.URL),
		slog.Int("status", entry.Status),
		slog.Int("failures", entry.FailureCount))
}

// Close releases the cache.
func (c *Checker) Close() error {
	return c.cache.Close()
}
