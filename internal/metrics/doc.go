// Package metrics provides observability hooks for content scans, linting,
// and link verification.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics cost nothing until the serve command wires in the
// Prometheus implementation:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	hub := server.NewHub(recorder)
//
// Swapping the implementation is the whole activation story; call sites
// never check whether metrics are enabled.
package metrics
