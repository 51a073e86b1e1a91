package pricingsvc

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/catalog"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
	"git.home.luguber.info/inful/pricewatch/internal/retry"
)

// Options configures a Service.
type Options struct {
	// Catalog resolves requests that omit the product. Optional.
	Catalog *catalog.Catalog
	// JitterMin and JitterMax bound a random delay added to each request.
	JitterMin time.Duration
	JitterMax time.Duration
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

// Service answers price requests. Transports (HTTP, NATS) call Price.
type Service struct {
	engine   *Engine
	opts     Options
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewService wraps engine with request handling.
func NewService(engine *Engine, opts Options) (*Service, error) {
	if engine == nil {
		return nil, ferrors.ValidationError("pricing engine is required").Build()
	}
	if opts.JitterMin < 0 || opts.JitterMax < opts.JitterMin {
		return nil, ferrors.ValidationError("invalid jitter range").
			WithContext("jitter_min", opts.JitterMin.String()).
			WithContext("jitter_max", opts.JitterMax.String()).
			Build()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{engine: engine, opts: opts, recorder: opts.Recorder, logger: opts.Logger}, nil
}

// Price resolves the product, waits the configured jitter and calculates.
func (s *Service) Price(ctx context.Context, req pricing.PriceRequest) (pricing.Result, error) {
	product, err := s.resolveProduct(req)
	if err != nil {
		return pricing.Result{}, err
	}
	if err := retry.Sleep(ctx, s.jitter()); err != nil {
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryRuntime, "price request canceled").Build()
	}
	return s.engine.Calculate(req.Configuration, product)
}

func (s *Service) resolveProduct(req pricing.PriceRequest) (pricing.Product, error) {
	if req.Product != nil {
		return *req.Product, nil
	}
	if s.opts.Catalog == nil {
		return pricing.Product{}, ferrors.ValidationError("request has no product and no catalog is loaded").Build()
	}
	return s.opts.Catalog.Product(req.Configuration.ProductID)
}

func (s *Service) jitter() time.Duration {
	lo, hi := s.opts.JitterMin, s.opts.JitterMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// observe records one handled request on transport.
func (s *Service) observe(transport string, start time.Time, res pricing.Result, err error) {
	elapsed := time.Since(start)
	s.recorder.ObserveServiceRequest(transport, elapsed, err == nil)
	if err != nil {
		s.logger.Warn("Price request failed",
			logfields.Transport(transport),
			logfields.Duration(elapsed),
			logfields.Error(err))
		return
	}
	s.logger.Debug("Price request served",
		logfields.Transport(transport),
		logfields.Duration(elapsed),
		logfields.RequestID(res.RequestID))
}
