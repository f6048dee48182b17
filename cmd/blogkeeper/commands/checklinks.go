package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/content"
	"git.home.luguber.info/inful/blogkeeper/internal/index"
	"git.home.luguber.info/inful/blogkeeper/internal/linkcheck"
	"git.home.luguber.info/inful/blogkeeper/internal/metrics"
	"git.home.luguber.info/inful/blogkeeper/internal/post"
	"git.home.luguber.info/inful/blogkeeper/internal/taxonomy"
)

// CheckLinksCmd implements the 'check-links' command.
type CheckLinksCmd struct {
	Timeout         time.Duration `default:"10s" help:"Per-request timeout"`
	Concurrency     int           `default:"10" help:"Parallel requests"`
	RateDelay       time.Duration `name:"rate-delay" default:"0s" help:"Pause between request starts"`
	FollowRedirects bool          `name:"follow-redirects" default:"true" negatable:"" help:"Follow HTTP redirects"`
	InternalOnly    bool          `name:"internal-only" xor:"scope" help:"Check only site-internal paths"`
	ExternalOnly    bool          `name:"external-only" xor:"scope" help:"Check only external URLs"`
	BaseURL         string        `name:"base-url" help:"Absolute URLs under this base count as internal (default: baseURL from config.toml)"`
	Format          string        `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	NATS            string        `name:"nats" help:"NATS server URL for the shared link cache; empty keeps the cache in memory"`
	CacheTTL        time.Duration `name:"cache-ttl" default:"1h" help:"How long successful checks stay cached"`
	FailTTL         time.Duration `name:"fail-ttl" default:"10m" help:"How long failures stay cached"`
	Record          bool          `help:"Record results in the index"`
	Index           string        `help:"Index database path" default:".blogkeeper/index.db"`
}

// Run executes the check-links command.
func (cmd *CheckLinksCmd) Run(_ *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, err := root.loadView("")
	if err != nil {
		return err
	}

	baseURL := cmd.BaseURL
	if baseURL == "" && v.Site != nil {
		baseURL = v.Site.BaseURL
	}

	refs := filterRefs(linkcheck.Collect(v.Corpus, baseURL), cmd.InternalOnly, cmd.ExternalOnly)
	if len(refs) == 0 {
		fmt.Println("No links to check.")
		return nil
	}

	var ix *index.Index
	scanID := ""
	if cmd.Record {
		ix, err = openIndex(cmd.Index)
		if err != nil {
			return err
		}
		defer func() { _ = ix.Close() }()

		scanID, err = currentScanID(ctx, ix, v)
		if err != nil {
			return err
		}
	}

	cache, err := cmd.buildCache()
	if err != nil {
		return err
	}

	checker := linkcheck.New(linkcheck.Options{
		MaxConcurrent:   cmd.Concurrency,
		RequestTimeout:  cmd.Timeout,
		RateLimitDelay:  cmd.RateDelay,
		FollowRedirects: cmd.FollowRedirects,
		ScanID:          scanID,
	}, cache, metrics.NoopRecorder{}, siteResolver(v.Corpus, v.Taxonomy))
	defer func() { _ = checker.Close() }()

	report, err := checker.Check(ctx, refs)
	if err != nil {
		return err
	}

	if ix != nil {
		if err := ix.SaveLinkResults(ctx, scanID, report.Results); err != nil {
			return err
		}
	}

	if cmd.Format == "json" {
		if err := printIndented(report); err != nil {
			return err
		}
	} else {
		printLinkReport(report)
	}

	if len(report.Broken()) > 0 {
		os.Exit(1)
	}
	return nil
}

func (cmd *CheckLinksCmd) buildCache() (linkcheck.Cache, error) {
	if cmd.NATS == "" {
		return linkcheck.NewMemoryCache(cmd.CacheTTL, cmd.FailTTL), nil
	}
	return linkcheck.NewNATSCache(linkcheck.NATSOptions{
		URL:              cmd.NATS,
		CacheTTL:         cmd.CacheTTL,
		CacheTTLFailures: cmd.FailTTL,
	})
}

// currentScanID returns the scan link results should attach to, recording a
// fresh scan when the index has none yet.
func currentScanID(ctx context.Context, ix *index.Index, v *view) (string, error) {
	latest, err := ix.LatestScan(ctx)
	if err == nil {
		return latest.ID, nil
	}
	if !errors.Is(err, index.ErrNoScans) {
		return "", err
	}
	now := time.Now()
	rec, err := ix.RecordScan(ctx, v.Corpus, v.Manifest, string(metrics.TriggerManual), now, now)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func filterRefs(refs []linkcheck.Ref, internalOnly, externalOnly bool) []linkcheck.Ref {
	if !internalOnly && !externalOnly {
		return refs
	}
	var out []linkcheck.Ref
	for _, ref := range refs {
		if ref.Internal == internalOnly {
			out = append(out, ref)
		}
	}
	return out
}

func printLinkReport(report *linkcheck.Report) {
	cached, skipped := 0, 0
	for _, res := range report.Results {
		if res.Cached {
			cached++
		}
		if res.Skipped {
			skipped++
		}
	}

	fmt.Printf("Checked %d links in %s: %d ok", len(report.Results), report.Duration.Round(time.Millisecond), report.OKCount())
	if cached > 0 {
		fmt.Printf(", %d cached", cached)
	}
	if skipped > 0 {
		fmt.Printf(", %d skipped", skipped)
	}
	broken := report.Broken()
	fmt.Printf(", %d broken\n", len(broken))

	if len(broken) == 0 {
		return
	}

	fmt.Println("\nBroken links:")
	for _, res := range broken {
		detail := res.Error
		if res.Status > 0 {
			detail = fmt.Sprintf("HTTP %d", res.Status)
		}
		fmt.Printf("\n  %s (%s)\n", res.URL, detail)
		if len(res.Sources) > 0 {
			fmt.Printf("    in %s\n", strings.Join(res.Sources, ", "))
		}
	}
}

// siteResolver answers whether a rooted site path exists in the current
// content tree. Only routes we can positively rule out count as broken;
// unknown shapes pass.
func siteResolver(corpus *content.Corpus, tax *taxonomy.Index) func(linkcheck.Ref) bool {
	relFiles := map[string]bool{}
	for _, p := range corpus.Posts() {
		relFiles[filepath.ToSlash(p.RelativePath)] = true
	}
	for _, stub := range corpus.SectionStubs() {
		relFiles[filepath.ToSlash(stub.RelativePath)] = true
	}
	sections := map[string]bool{}
	for _, s := range corpus.Sections() {
		sections[s] = true
	}

	return func(ref linkcheck.Ref) bool {
		trimmed := strings.Trim(ref.URL, "/")
		if trimmed == "" || relFiles[trimmed] {
			return true
		}

		segments := strings.Split(trimmed, "/")
		if len(segments) != 2 {
			return true
		}
		head, tail := segments[0], segments[1]

		if head == "posts" || sections[head] {
			return corpus.Find(tail) != nil
		}
		if tax != nil {
			for _, plural := range tax.Taxonomies() {
				if head != plural {
					continue
				}
				for _, term := range tax.Terms(plural) {
					if post.Slugify(term.Name) == tail {
						return true
					}
				}
				return false
			}
		}
		return true
	}
}
