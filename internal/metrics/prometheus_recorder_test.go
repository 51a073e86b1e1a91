package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncAttemptIssued("change")
	pr.IncAttemptIssued("change")
	pr.IncAttemptIssued("refetch")
	pr.IncAttemptSettled(OutcomeCommitted)
	pr.IncAttemptSettled(OutcomeDiscarded)
	pr.ObserveAttemptDuration(OutcomeCommitted, 120*time.Millisecond)
	pr.AddInFlight(2)
	pr.AddInFlight(-1)
	pr.IncDebounceCoalesced()
	pr.ObserveServiceRequest("http", 5*time.Millisecond, true)

	require.InDelta(t, 2, testutil.ToFloat64(pr.attemptsIssued.WithLabelValues("change")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.attemptsSettled.WithLabelValues("discarded")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.inFlight), 0)
	require.InDelta(t, 1, testutil.ToFloat64(pr.debounceCoalesce), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncAttemptIssued("change")
	pr.AddInFlight(1)
	pr.ObserveServiceRequest("nats", time.Millisecond, false)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncAttemptIssued("debounce")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `pricewatch_attempts_issued_total{trigger="debounce"} 1`))
}
