// Package metrics provides the observability hooks used by a prerender run.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default, so callers never need nil checks:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Metrics.Textfile != "" {
//	    rec = metrics.NewPrometheusRecorder(reg)
//	}
//
// PrometheusRecorder registers its collectors on the supplied registry; the
// CLI flushes that registry to a node-exporter textfile after each run.
package metrics
