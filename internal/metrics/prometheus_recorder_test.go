package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveScanDuration(150 * time.Millisecond)
	pr.IncScanResult(ResultSuccess)
	pr.IncRescanTrigger(TriggerFS)
	pr.SetPostCounts(27, 3)
	pr.ObserveLintDuration(40 * time.Millisecond)
	pr.SetLintIssues("error", 2)
	pr.ObserveLinkCheckDuration(3 * time.Second)
	pr.IncLinkResult("ok")
	pr.SetBrokenLinks(1)
	pr.SetEventClients(2)

	// scrape to ensure everything encodes without panic
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected metrics, got none")
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveScanDuration(time.Second)
	pr.IncScanResult(ResultFailed)
	pr.SetPostCounts(0, 0)
	pr.SetEventClients(0)
}

func TestNoopRecorder_SatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveScanDuration(time.Second)
	r.IncScanResult(ResultSuccess)
	r.IncRescanTrigger(TriggerSchedule)
	r.SetPostCounts(1, 1)
	r.ObserveLintDuration(time.Second)
	r.SetLintIssues("warning", 0)
	r.ObserveLinkCheckDuration(time.Second)
	r.IncLinkResult("broken")
	r.SetBrokenLinks(0)
	r.SetEventClients(0)
}
