package linkcheck

import "time"

// BrokenLinkEvent is published when a link fails verification. Downstream
// consumers (issue creators, notifiers) subscribe to these off NATS.
type BrokenLinkEvent struct {
	URL        string   `json:"url"`
	Status     int      `json:"status"` // 0 for non-HTTP failures
	Error      string   `json:"error"`
	IsInternal bool     `json:"is_internal"`
	Sources    []string `json:"sources,omitempty"` // posts carrying the link

	ScanID string `json:"scan_id,omitempty"`

	Timestamp     time.Time `json:"timestamp"`
	LastChecked   time.Time `json:"last_checked"`
	FailureCount  int       `json:"failure_count"`
	FirstFailedAt time.Time `json:"first_failed_at,omitzero"`
}
