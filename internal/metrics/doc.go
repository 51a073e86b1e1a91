// Package metrics provides the observability hooks for price coordination.
//
// Components receive a Recorder through their options. NoopRecorder is the
// default, so nothing needs nil checks; PrometheusRecorder is swapped in when
// metrics are enabled in configuration:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	coord, err := quote.New(calc, product, quote.Options{Recorder: rec})
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
