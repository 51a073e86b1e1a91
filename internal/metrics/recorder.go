package metrics

import "time"

// OutcomeLabel enumerates how a completed pricing attempt was handled.
type OutcomeLabel string

const (
	// OutcomeCommitted: authoritative success, result committed.
	OutcomeCommitted OutcomeLabel = "committed"
	// OutcomeFailed: authoritative failure, error committed.
	OutcomeFailed OutcomeLabel = "failed"
	// OutcomeDiscarded: superseded attempt, completion ignored.
	OutcomeDiscarded OutcomeLabel = "discarded"
)

// Recorder defines observability hooks for coordinator and pricing service metrics.
type Recorder interface {
	IncAttemptIssued(trigger string)
	IncAttemptSettled(outcome OutcomeLabel)
	ObserveAttemptDuration(outcome OutcomeLabel, d time.Duration)
	AddInFlight(delta int)
	IncDebounceCoalesced()
	ObserveServiceRequest(transport string, d time.Duration, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncAttemptIssued(string)                            {}
func (NoopRecorder) IncAttemptSettled(OutcomeLabel)                     {}
func (NoopRecorder) ObserveAttemptDuration(OutcomeLabel, time.Duration) {}
func (NoopRecorder) AddInFlight(int)                                    {}
func (NoopRecorder) IncDebounceCoalesced()                              {}
func (NoopRecorder) ObserveServiceRequest(string, time.Duration, bool)  {}
