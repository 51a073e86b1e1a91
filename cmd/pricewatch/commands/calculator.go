package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/pricewatch/internal/config"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
	"git.home.luguber.info/inful/pricewatch/internal/pricing/httpcalc"
	"git.home.luguber.info/inful/pricewatch/internal/pricing/natscalc"
	"git.home.luguber.info/inful/pricewatch/internal/quote"
	"git.home.luguber.info/inful/pricewatch/internal/retry"
)

// newCalculator builds the remote pricing client for the configured
// transport. The returned func releases its connection.
func newCalculator(cfg config.PricingConfig, rec metrics.Recorder, logger *slog.Logger) (pricing.Calculator, func(), error) {
	switch cfg.Transport {
	case config.TransportNATS:
		conn, err := natscalc.Connect(cfg.NATSURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Pricing over NATS", logfields.URL(cfg.NATSURL), logfields.Subject(cfg.Subject))
		calc := natscalc.New(conn, natscalc.Options{
			Subject:  cfg.Subject,
			Timeout:  cfg.Timeout.Std(),
			Recorder: rec,
			Logger:   logger,
		})
		return calc, conn.Close, nil
	case config.TransportHTTP:
		policy := retry.FromConfig(cfg.Retry)
		if err := policy.Validate(); err != nil {
			return nil, nil, err
		}
		logger.Info("Pricing over HTTP", logfields.URL(cfg.URL))
		calc := httpcalc.New(cfg.URL, httpcalc.Options{
			Timeout:  cfg.Timeout.Std(),
			Retry:    policy,
			Recorder: rec,
			Logger:   logger,
		})
		return calc, func() {}, nil
	default:
		return nil, nil, ferrors.ConfigError("unsupported pricing transport").
			WithContext("transport", string(cfg.Transport)).
			Build()
	}
}

// coordinatorOptions maps the coordinator section onto quote.Options.
func coordinatorOptions(cfg config.CoordinatorConfig) quote.Options {
	mode := quote.ModeImmediate
	if cfg.Mode == config.ModeDebounced {
		mode = quote.ModeDebounced
	}
	return quote.Options{
		Mode:                mode,
		Delay:               cfg.Delay.Std(),
		MaxWait:             cfg.MaxWait.Std(),
		KeepSupersededCalls: cfg.KeepSuperseded,
		AttemptTimeout:      cfg.AttemptTimeout.Std(),
		EmptyTotal:          cfg.EmptyTotal,
	}
}
