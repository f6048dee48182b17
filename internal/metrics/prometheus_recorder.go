package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once sync.Once

	scanDuration      prom.Histogram
	scanResults       *prom.CounterVec
	rescanTriggers    *prom.CounterVec
	postCounts        *prom.GaugeVec
	lintDuration      prom.Histogram
	lintIssues        *prom.GaugeVec
	linkCheckDuration prom.Histogram
	linkResults       *prom.CounterVec
	brokenLinks       prom.Gauge
	eventClients      prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.scanDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogkeeper",
			Name:      "scan_duration_seconds",
			Help:      "Duration of full content scans",
			Buckets:   prom.DefBuckets,
		})
		pr.scanResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogkeeper",
			Name:      "scan_results_total",
			Help:      "Scan outcomes by result",
		}, []string{"result"})
		pr.rescanTriggers = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogkeeper",
			Name:      "rescan_triggers_total",
			Help:      "Rescans by trigger source",
		}, []string{"trigger"})
		pr.postCounts = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "blogkeeper",
			Name:      "posts",
			Help:      "Posts in the corpus by state",
		}, []string{"state"})
		pr.lintDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogkeeper",
			Name:      "lint_duration_seconds",
			Help:      "Duration of lint runs",
			Buckets:   prom.DefBuckets,
		})
		pr.lintIssues = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "blogkeeper",
			Name:      "lint_issues",
			Help:      "Open lint issues by severity, from the last run",
		}, []string{"severity"})
		pr.linkCheckDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "blogkeeper",
			Name:      "link_check_duration_seconds",
			Help:      "Duration of link verification runs",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		})
		pr.linkResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "blogkeeper",
			Name:      "link_results_total",
			Help:      "Link verification outcomes",
		}, []string{"result"})
		pr.brokenLinks = prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogkeeper",
			Name:      "broken_links",
			Help:      "Broken links found by the last verification run",
		})
		pr.eventClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: "blogkeeper",
			Name:      "event_clients",
			Help:      "Connected event stream clients",
		})
		reg.MustRegister(
			pr.scanDuration, pr.scanResults, pr.rescanTriggers, pr.postCounts,
			pr.lintDuration, pr.lintIssues,
			pr.linkCheckDuration, pr.linkResults, pr.brokenLinks,
			pr.eventClients,
		)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveScanDuration(d time.Duration) {
	if p == nil || p.scanDuration == nil {
		return
	}
	p.scanDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncScanResult(result ResultLabel) {
	if p == nil || p.scanResults == nil {
		return
	}
	p.scanResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncRescanTrigger(trigger TriggerLabel) {
	if p == nil || p.rescanTriggers == nil {
		return
	}
	p.rescanTriggers.WithLabelValues(string(trigger)).Inc()
}

func (p *PrometheusRecorder) SetPostCounts(published, drafts int) {
	if p == nil || p.postCounts == nil {
		return
	}
	p.postCounts.WithLabelValues("published").Set(float64(published))
	p.postCounts.WithLabelValues("draft").Set(float64(drafts))
}

func (p *PrometheusRecorder) ObserveLintDuration(d time.Duration) {
	if p == nil || p.lintDuration == nil {
		return
	}
	p.lintDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetLintIssues(severity string, n int) {
	if p == nil || p.lintIssues == nil {
		return
	}
	p.lintIssues.WithLabelValues(severity).Set(float64(n))
}

func (p *PrometheusRecorder) ObserveLinkCheckDuration(d time.Duration) {
	if p == nil || p.linkCheckDuration == nil {
		return
	}
	p.linkCheckDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncLinkResult(result string) {
	if p == nil || p.linkResults == nil {
		return
	}
	p.linkResults.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetBrokenLinks(n int) {
	if p == nil || p.brokenLinks == nil {
		return
	}
	p.brokenLinks.Set(float64(n))
}

func (p *PrometheusRecorder) SetEventClients(n int) {
	if p == nil || p.eventClients == nil {
		return
	}
	p.eventClients.Set(float64(n))
}
