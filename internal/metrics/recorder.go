package metrics

import "time"

// ResultLabel enumerates operation result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// TriggerLabel says what started a rescan.
type TriggerLabel string

const (
	TriggerStartup  TriggerLabel = "startup"
	TriggerFS       TriggerLabel = "fs"
	TriggerSchedule TriggerLabel = "schedule"
	TriggerManual   TriggerLabel = "manual"
)

// Recorder defines the observability hooks for scans, lint runs, and link
// verification. All methods must be safe on the NoopRecorder so injection
// stays optional.
type Recorder interface {
	ObserveScanDuration(d time.Duration)
	IncScanResult(result ResultLabel)
	IncRescanTrigger(trigger TriggerLabel)
	SetPostCounts(published, drafts int)

	ObserveLintDuration(d time.Duration)
	SetLintIssues(severity string, n int)

	ObserveLinkCheckDuration(d time.Duration)
	IncLinkResult(result string) // ok|broken|error|cached|skipped
	SetBrokenLinks(n int)

	SetEventClients(n int)
}

// NoopRecorder is the default Recorder; it does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveScanDuration(time.Duration)      {}
func (NoopRecorder) IncScanResult(ResultLabel)              {}
func (NoopRecorder) IncRescanTrigger(TriggerLabel)          {}
func (NoopRecorder) SetPostCounts(int, int)                 {}
func (NoopRecorder) ObserveLintDuration(time.Duration)      {}
func (NoopRecorder) SetLintIssues(string, int)              {}
func (NoopRecorder) ObserveLinkCheckDuration(time.Duration) {}
func (NoopRecorder) IncLinkResult(string)                   {}
func (NoopRecorder) SetBrokenLinks(int)                     {}
func (NoopRecorder) SetEventClients(int)                    {}
