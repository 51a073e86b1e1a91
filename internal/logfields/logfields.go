package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID  = "session_id"
	KeySequence   = "sequence"
	KeyLatest     = "latest_sequence"
	KeyTrigger    = "trigger"
	KeyOutcome    = "outcome"
	KeyStatus     = "status"
	KeyProductID  = "product_id"
	KeyDigest     = "config_digest"
	KeyRequestID  = "request_id"
	KeyDurationMS = "duration_ms"
	KeyDelayMS    = "delay_ms"
	KeyTransport  = "transport"
	KeyURL        = "url"
	KeySubject    = "subject"
	KeyPath       = "path"
	KeyAttempt    = "attempt"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr   { return slog.String(KeySessionID, id) }
func Sequence(seq uint64) slog.Attr   { return slog.Uint64(KeySequence, seq) }
func Latest(seq uint64) slog.Attr     { return slog.Uint64(KeyLatest, seq) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func ProductID(id string) slog.Attr   { return slog.String(KeyProductID, id) }
func Digest(d string) slog.Attr       { return slog.String(KeyDigest, d) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func Transport(t string) slog.Attr    { return slog.String(KeyTransport, t) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Duration reports d in milliseconds under the duration_ms key.
func Duration(d time.Duration) slog.Attr {
	return DurationMS(float64(d) / float64(time.Millisecond))
}

// Delay reports a debounce or backoff delay in milliseconds.
func Delay(d time.Duration) slog.Attr {
	return slog.Int64(KeyDelayMS, d.Milliseconds())
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
