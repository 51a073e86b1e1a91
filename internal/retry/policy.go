// Package retry provides the backoff policy used by remote pricing transports.
package retry

import (
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/config"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// Policy encapsulates retry/backoff settings for transient transport failures.
// It is immutable after construction.
type Policy struct {
	Mode       config.RetryBackoffMode // fixed|linear|exponential
	Initial    time.Duration           // base delay
	Max        time.Duration           // cap for growth
	MaxRetries int                     // retries after the first failure
}

// DefaultPolicy returns the transport default (exponential, 100ms initial, 2s cap, 2 retries).
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffExponential, Initial: 100 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if m := config.NormalizeRetryBackoff(string(mode)); m != "" {
		p.Mode = m
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// FromConfig builds a policy from the pricing.retry section.
func FromConfig(rc config.RetryConfig) Policy {
	return NewPolicy(rc.Mode, rc.Initial.Std(), rc.Max.Std(), rc.MaxRetries)
}

// Delay returns the backoff delay for the given retry number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case config.RetryBackoffFixed:
		return p.Initial
	case config.RetryBackoffExponential:
		// Shift bounded to avoid overflow for large retry counts.
		shift := min(retryCount-1, 30)
		d := p.Initial * (1 << shift)
		if d > p.Max || d <= 0 {
			return p.Max
		}
		return d
	default: // linear
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return ferrors.ValidationError("retry initial delay must be > 0").Build()
	}
	if p.Max <= 0 {
		return ferrors.ValidationError("retry max delay must be > 0").Build()
	}
	if p.MaxRetries < 0 {
		return ferrors.ValidationError("retry max retries cannot be negative").Build()
	}
	return nil
}
