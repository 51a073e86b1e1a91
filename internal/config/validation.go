package config

import (
	"net/url"

	"golang.org/x/text/language"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// Validate checks a defaulted configuration and returns a classified config error.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateCoordinator,
		validatePricing,
		validateServer,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateCoordinator(cfg *Config) error {
	c := cfg.Coordinator
	if NormalizeCoordinatorMode(string(c.Mode)) == "" {
		return invalid("coordinator.mode", string(c.Mode), "must be immediate or debounced")
	}
	for field, d := range map[string]Duration{
		"coordinator.delay":            c.Delay,
		"coordinator.max_wait":         c.MaxWait,
		"coordinator.attempt_timeout":  c.AttemptTimeout,
		"coordinator.refresh_interval": c.RefreshInterval,
	} {
		if d < 0 {
			return invalid(field, d.String(), "must not be negative")
		}
	}
	if c.MaxWait > 0 && c.MaxWait < c.Delay {
		return invalid("coordinator.max_wait", c.MaxWait.String(), "must be >= coordinator.delay")
	}
	return nil
}

func validatePricing(cfg *Config) error {
	p := cfg.Pricing
	switch NormalizeTransport(string(p.Transport)) {
	case TransportHTTP:
		u, err := url.Parse(p.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("pricing.url", p.URL, "must be an absolute http(s) URL")
		}
	case TransportNATS:
		if p.NATSURL == "" {
			return invalid("pricing.nats_url", p.NATSURL, "required for the nats transport")
		}
	default:
		return invalid("pricing.transport", string(p.Transport), "must be http or nats")
	}
	if p.Timeout < 0 {
		return invalid("pricing.timeout", p.Timeout.String(), "must not be negative")
	}
	if p.Retry.MaxRetries < 0 {
		return invalid("pricing.retry.max_retries", "", "must not be negative")
	}
	if NormalizeRetryBackoff(string(p.Retry.Mode)) == "" {
		return invalid("pricing.retry.mode", string(p.Retry.Mode), "must be fixed, linear or exponential")
	}
	return nil
}

func validateServer(cfg *Config) error {
	s := cfg.Server
	if s.JitterMin < 0 || s.JitterMax < 0 {
		return invalid("server.jitter_min", s.JitterMin.String(), "jitter must not be negative")
	}
	if s.JitterMax < s.JitterMin {
		return invalid("server.jitter_max", s.JitterMax.String(), "must be >= server.jitter_min")
	}
	if _, err := language.Parse(s.Locale); err != nil {
		return invalid("server.locale", s.Locale, "must be a BCP 47 language tag")
	}
	return nil
}

func invalid(field, value, reason string) error {
	return ferrors.ConfigError("invalid configuration: "+field+" "+reason).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
