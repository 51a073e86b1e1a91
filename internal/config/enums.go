package config

import "strings"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RetryBackoffFixed):
		return RetryBackoffFixed
	case string(RetryBackoffLinear):
		return RetryBackoffLinear
	case string(RetryBackoffExponential):
		return RetryBackoffExponential
	default:
		return ""
	}
}

// CoordinatorMode selects immediate or debounced pricing.
type CoordinatorMode string

const (
	ModeImmediate CoordinatorMode = "immediate"
	ModeDebounced CoordinatorMode = "debounced"
)

// NormalizeCoordinatorMode returns the typed mode for raw, or empty string for unknown.
func NormalizeCoordinatorMode(raw string) CoordinatorMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeImmediate):
		return ModeImmediate
	case string(ModeDebounced):
		return ModeDebounced
	default:
		return ""
	}
}

// Transport selects how the remote pricing operation is reached.
type Transport string

const (
	TransportHTTP Transport = "http"
	TransportNATS Transport = "nats"
)

// NormalizeTransport returns the typed transport for raw, or empty string for unknown.
func NormalizeTransport(raw string) Transport {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(TransportHTTP):
		return TransportHTTP
	case string(TransportNATS):
		return TransportNATS
	default:
		return ""
	}
}
