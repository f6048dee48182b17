package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/linkcheck"
	"git.home.luguber.info/inful/blogkeeper/internal/lint"
	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
	"git.home.luguber.info/inful/blogkeeper/internal/metrics"
	"git.home.luguber.info/inful/blogkeeper/internal/server"
	"git.home.luguber.info/inful/blogkeeper/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr            string        `default:":1313" help:"Listen address"`
	Index           string        `help:"Index database path" default:".blogkeeper/index.db"`
	NoIndex         bool          `name:"no-index" help:"Run without the scan index"`
	RescanEvery     time.Duration `name:"rescan-every" default:"5m" help:"Periodic full rescan interval (0 disables)"`
	CheckLinksEvery time.Duration `name:"check-links-every" default:"1h" help:"Periodic link verification interval (0 disables)"`
	Debounce        time.Duration `default:"500ms" help:"How long the tree must stay quiet before a rescan"`
	NoWatch         bool          `name:"no-watch" help:"Do not watch the filesystem"`
	NoMetrics       bool          `name:"no-metrics" help:"Do not expose /metrics"`
	BaseURL         string        `name:"base-url" help:"Base URL override for link classification"`
	NATS            string        `name:"nats" help:"NATS server URL for the shared link cache; empty keeps the cache in memory"`
}

// Run executes the serve command.
func (cmd *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	srvOpts := server.Options{Addr: cmd.Addr}
	if !cmd.NoMetrics {
		reg := prometheus.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		srvOpts.MetricsHandler = metrics.HTTPHandler(reg)
	}

	var ix *index.Index
	if !cmd.NoIndex {
		var err error
		ix, err = openIndex(cmd.Index)
		if err != nil {
			return err
		}
		defer func() { _ = ix.Close() }()
	}

	cache, err := cmd.buildCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	rt := &serveRuntime{
		cli:     root,
		store:   server.NewStore(),
		hub:     server.NewHub(rec),
		ix:      ix,
		rec:     rec,
		cache:   cache,
		baseURL: cmd.BaseURL,
	}

	// First scan happens before the listener opens so the API never starts
	// cold.
	rt.rescan(ctx, metrics.TriggerStartup)

	srvOpts.Rescan = func() { rt.rescan(context.Background(), metrics.TriggerManual) }
	srv := server.New(srvOpts, rt.store, ix, rt.hub)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	var watcher *watch.Watcher
	if !cmd.NoWatch {
		watcher, err = watch.NewWatcher(root.contentDir(), root.Config, cmd.Debounce, func() {
			rt.rescan(context.Background(), metrics.TriggerFS)
		})
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}

	scheduler, err := watch.NewScheduler()
	if err != nil {
		return err
	}
	if cmd.RescanEvery > 0 {
		if _, err := scheduler.Every("rescan", cmd.RescanEvery, func() {
			rt.rescan(context.Background(), metrics.TriggerSchedule)
		}); err != nil {
			return err
		}
	}
	if cmd.CheckLinksEvery > 0 {
		if _, err := scheduler.Every("check-links", cmd.CheckLinksEvery, func() {
			rt.checkLinks(context.Background())
		}); err != nil {
			return err
		}
		// Interval jobs first fire after one full interval; sweep once now
		// so the broken-links endpoint has data soon after startup.
		go rt.checkLinks(ctx)
	}
	scheduler.Start()

	slog.Info("Authoring server up",
		slog.String("addr", cmd.Addr),
		slog.Bool("watching", watcher != nil),
		slog.Bool("index", ix != nil))

	<-ctx.Done()
	slog.Info("Shutting down")

	if watcher != nil {
		watcher.Stop()
	}
	if err := scheduler.Stop(); err != nil {
		slog.Warn("Scheduler shutdown failed", logfields.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func (cmd *ServeCmd) buildCache() (linkcheck.Cache, error) {
	if cmd.NATS == "" {
		return linkcheck.NewMemoryCache(0, 0), nil
	}
	return linkcheck.NewNATSCache(linkcheck.NATSOptions{URL: cmd.NATS})
}

// serveRuntime owns the moving parts behind the server: scans, link
// sweeps, and the broadcasts both produce. Scans are serialized; a watcher
// kick during a scheduled rescan just waits its turn.
type serveRuntime struct {
	mu      sync.Mutex
	cli     *CLI
	store   *server.Store
	hub     *server.Hub
	ix      *index.Index
	rec     metrics.Recorder
	cache   linkcheck.Cache
	baseURL string
}

func (rt *serveRuntime) rescan(ctx context.Context, trigger metrics.TriggerLabel) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.rec.IncRescanTrigger(trigger)
	started := time.Now()

	v, err := rt.cli.loadView("")
	if err != nil {
		slog.Error("Rescan failed", slog.String("trigger", string(trigger)), logfields.Error(err))
		rt.rec.IncScanResult(metrics.ResultFailed)
		return
	}

	lintStarted := time.Now()
	result := lint.NewLinter(&lint.Config{}).Run(v.lintContext())
	rt.rec.ObserveLintDuration(time.Since(lintStarted))
	rt.rec.SetLintIssues("error", result.ErrorCount())
	rt.rec.SetLintIssues("warning", result.WarningCount())
	rt.rec.SetLintIssues("info", result.InfoCount())

	finished := time.Now()

	scanID := uuid.NewString()
	if rt.ix != nil {
		rec, err := rt.ix.RecordScan(ctx, v.Corpus, v.Manifest, string(trigger), started, finished)
		if err != nil {
			slog.Error("Scan not recorded", logfields.Error(err))
		} else {
			scanID = rec.ID
		}
	}

	rt.store.Set(&server.Snapshot{
		ScanID:    scanID,
		ScannedAt: finished,
		Trigger:   string(trigger),
		Corpus:    v.Corpus,
		Site:      v.Site,
		SiteErr:   v.SiteErr,
		Taxonomy:  v.Taxonomy,
		Lint:      result,
		TreeHash:  v.Manifest.Hash,
	})

	rt.rec.ObserveScanDuration(time.Since(started))
	rt.rec.IncScanResult(metrics.ResultSuccess)
	rt.rec.SetPostCounts(len(v.Corpus.Published()), len(v.Corpus.Drafts()))

	rt.hub.Broadcast(server.Event{Type: "scan", Data: server.ScanEvent{
		ScanID:   scanID,
		Trigger:  string(trigger),
		TreeHash: v.Manifest.Hash,
		Posts:    len(v.Corpus.Published()),
		Drafts:   len(v.Corpus.Drafts()),
		Errors:   result.ErrorCount(),
		Warnings: result.WarningCount(),
		At:       finished,
	}})

	slog.Info("Rescan complete",
		slog.String("trigger", string(trigger)),
		logfields.ScanID(scanID),
		logfields.Count(v.Corpus.Len()),
		slog.Int("issues", len(result.Issues)),
		logfields.DurationMS(float64(time.Since(started).Milliseconds())))
}

// checkLinks sweeps the links of the latest snapshot. Results land in the
// index and on the event stream; the shared cache keeps repeat sweeps from
// hammering the same hosts.
func (rt *serveRuntime) checkLinks(ctx context.Context) {
	snap := rt.store.Get()
	if snap == nil {
		return
	}

	baseURL := rt.baseURL
	if baseURL == "" && snap.Site != nil {
		baseURL = snap.Site.BaseURL
	}

	refs := linkcheck.Collect(snap.Corpus, baseURL)
	if len(refs) == 0 {
		return
	}

	// The checker is per sweep so it carries the right scan ID; the cache
	// outlives it, so Close stays unset here.
	checker := linkcheck.New(linkcheck.Options{ScanID: snap.ScanID},
		rt.cache, rt.rec, siteResolver(snap.Corpus, snap.Taxonomy))

	report, err := checker.Check(ctx, refs)
	if err != nil {
		slog.Error("Link check failed", logfields.Error(err))
		return
	}

	broken := report.Broken()
	rt.rec.SetBrokenLinks(len(broken))

	if rt.ix != nil {
		if err := rt.ix.SaveLinkResults(ctx, snap.ScanID, report.Results); err != nil {
			slog.Error("Link results not saved", logfields.Error(err))
		}
	}

	rt.hub.Broadcast(server.Event{Type: "links", Data: server.LinksEvent{
		ScanID:  snap.ScanID,
		Checked: len(report.Results),
		Broken:  len(broken),
		At:      time.Now(),
	}})

	slog.Info("Link check complete",
		logfields.Count(len(report.Results)),
		slog.Int("broken", len(broken)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
}
