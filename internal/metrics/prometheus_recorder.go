package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pricewatch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	attemptsIssued   *prom.CounterVec
	attemptsSettled  *prom.CounterVec
	attemptDuration  *prom.HistogramVec
	inFlight         prom.Gauge
	debounceCoalesce prom.Counter
	serviceDuration  *prom.HistogramVec
	serviceResults   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the pricewatch metrics on reg.
// A nil registry gets a private one, which keeps tests isolated.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		attemptsIssued: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_issued_total",
			Help:      "Pricing attempts issued by trigger",
		}, []string{"trigger"}),
		attemptsSettled: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_settled_total",
			Help:      "Completed pricing attempts by outcome",
		}, []string{"outcome"}),
		attemptDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Remote pricing call latency as seen by the coordinator",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"}),
		inFlight: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "attempts_in_flight",
			Help:      "Pricing attempts awaiting completion, authoritative or not",
		}),
		debounceCoalesce: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "debounce_coalesced_total",
			Help:      "Pending debounce triggers replaced by a newer change",
		}),
		serviceDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "service_request_duration_seconds",
			Help:      "Pricing service request handling time",
			Buckets:   prom.DefBuckets,
		}, []string{"transport"}),
		serviceResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "service_requests_total",
			Help:      "Pricing service requests by transport and result",
		}, []string{"transport", "result"}),
	}
	reg.MustRegister(pr.attemptsIssued, pr.attemptsSettled, pr.attemptDuration, pr.inFlight,
		pr.debounceCoalesce, pr.serviceDuration, pr.serviceResults)
	return pr
}

func (p *PrometheusRecorder) IncAttemptIssued(trigger string) {
	if p == nil {
		return
	}
	p.attemptsIssued.WithLabelValues(trigger).Inc()
}

func (p *PrometheusRecorder) IncAttemptSettled(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.attemptsSettled.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveAttemptDuration(outcome OutcomeLabel, d time.Duration) {
	if p == nil {
		return
	}
	p.attemptDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddInFlight(delta int) {
	if p == nil {
		return
	}
	p.inFlight.Add(float64(delta))
}

func (p *PrometheusRecorder) IncDebounceCoalesced() {
	if p == nil {
		return
	}
	p.debounceCoalesce.Inc()
}

func (p *PrometheusRecorder) ObserveServiceRequest(transport string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.serviceDuration.WithLabelValues(transport).Observe(d.Seconds())
	p.serviceResults.WithLabelValues(transport, res).Inc()
}
