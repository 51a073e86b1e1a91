// Package natscalc implements pricing.Calculator as a NATS request/reply.
package natscalc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// DefaultSubject is the request subject the reference service listens on.
const DefaultSubject = "pricing.calculate"

// Requester is the part of *nats.Conn the client needs.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client sends price requests on a NATS subject.
type Client struct {
	conn     Requester
	subject  string
	timeout  time.Duration
	recorder metrics.Recorder
	logger   *slog.Logger
}

var _ pricing.Calculator = (*Client)(nil)

// Options configures a Client.
type Options struct {
	Subject string
	// Timeout bounds each request when ctx has no earlier deadline.
	Timeout  time.Duration
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// New returns a client using conn, typically a *nats.Conn.
func New(conn Requester, opts Options) *Client {
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		conn:     conn,
		subject:  opts.Subject,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// Connect dials url and returns the connection with the client name set.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("pricewatch"))
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).
			Build()
	}
	return conn, nil
}

// CalculatePrice implements pricing.Calculator.
func (c *Client) CalculatePrice(ctx context.Context, cfg pricing.Configuration, product pricing.Product) (pricing.Result, error) {
	data, err := json.Marshal(pricing.PriceRequest{Configuration: cfg, Product: &product})
	if err != nil {
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode price request").Build()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := c.request(ctx, data)
	c.recorder.ObserveServiceRequest("nats_client", time.Since(start), err == nil)
	if err != nil {
		c.logger.Debug("NATS price request failed", logfields.Subject(c.subject), logfields.Error(err))
	}
	return res, err
}

func (c *Client) request(ctx context.Context, data []byte) (pricing.Result, error) {
	msg, err := c.conn.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return pricing.Result{}, err
		case errors.Is(err, nats.ErrNoResponders):
			return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryNetwork, "no pricing service is listening").
				WithContext("subject", c.subject).
				Build()
		case errors.Is(err, nats.ErrTimeout):
			return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryNetwork, "pricing request timed out").
				WithContext("subject", c.subject).
				Retryable().
				Build()
		default:
			return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryNetwork, "pricing request failed").
				WithContext("subject", c.subject).
				Build()
		}
	}

	var wire pricing.PriceResponse
	if err := json.Unmarshal(msg.Data, &wire); err != nil {
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryPricing, "malformed pricing reply").Build()
	}
	if wire.Error != "" {
		b := ferrors.PricingError(wire.Error).WithContext("remote_code", wire.Code)
		if wire.Retryable {
			b = b.Retryable()
		}
		return pricing.Result{}, b.Build()
	}
	if wire.Breakdown == nil {
		return pricing.Result{}, ferrors.PricingError("pricing reply without breakdown").Build()
	}
	return wire.Result(), nil
}
