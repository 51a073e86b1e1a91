// Package httpcalc implements pricing.Calculator over HTTP JSON.
package httpcalc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
	"git.home.luguber.info/inful/pricewatch/internal/retry"
)

// PricePath is appended to the base URL.
const PricePath = "/v1/price"

const maxResponseBytes = 1 << 20

// Options configures a Client.
type Options struct {
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	// Timeout bounds each HTTP round trip when HTTPClient is nil.
	Timeout  time.Duration
	Retry    retry.Policy
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Client calls a remote pricing service.
type Client struct {
	endpoint string
	http     *http.Client
	policy   retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
}

var _ pricing.Calculator = (*Client)(nil)

// New returns a client for the service at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		endpoint: baseURL + PricePath,
		http:     opts.HTTPClient,
		policy:   opts.Retry,
		recorder: opts.Recorder,
		logger:   opts.Logger,
	}
}

// CalculatePrice implements pricing.Calculator. Transient failures
// (connection errors, 429 and 5xx) are retried per the client's policy.
func (c *Client) CalculatePrice(ctx context.Context, cfg pricing.Configuration, product pricing.Product) (pricing.Result, error) {
	body, err := json.Marshal(pricing.PriceRequest{Configuration: cfg, Product: &product})
	if err != nil {
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryInternal, "failed to encode price request").Build()
	}

	var res pricing.Result
	start := time.Now()
	err = c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		var aerr error
		res, aerr = c.do(ctx, body)
		return aerr
	}, retryable, func(attempt int, delay time.Duration, err error) {
		c.logger.Debug("Retrying price request",
			logfields.URL(c.endpoint),
			logfields.Attempt(attempt),
			logfields.Delay(delay),
			logfields.Error(err))
	})
	c.recorder.ObserveServiceRequest("http_client", time.Since(start), err == nil)
	if err != nil {
		return pricing.Result{}, err
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, body []byte) (pricing.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid pricing URL").
			WithContext("url", c.endpoint).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return pricing.Result{}, ctx.Err()
		}
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryNetwork, "pricing service unreachable").
			WithContext("url", c.endpoint).
			Retryable().
			Build()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return pricing.Result{}, ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to read pricing response").
			Retryable().
			Build()
	}

	var wire pricing.PriceResponse
	decodeErr := json.Unmarshal(data, &wire)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pricing.Result{}, statusError(resp.StatusCode, wire, decodeErr)
	}
	if decodeErr != nil {
		return pricing.Result{}, ferrors.WrapError(decodeErr, ferrors.CategoryPricing, "malformed pricing response").Build()
	}
	if wire.Error != "" {
		return pricing.Result{}, ferrors.PricingError(wire.Error).WithContext("remote_code", wire.Code).Build()
	}
	if wire.Breakdown == nil {
		return pricing.Result{}, ferrors.PricingError("pricing response without breakdown").Build()
	}
	return wire.Result(), nil
}

func statusError(status int, wire pricing.PriceResponse, decodeErr error) error {
	msg := wire.Error
	if decodeErr != nil || msg == "" {
		msg = http.StatusText(status)
	}
	var b *ferrors.ErrorBuilder
	switch {
	case status == http.StatusTooManyRequests:
		b = ferrors.NetworkError(msg).RateLimit()
	case status >= 500:
		b = ferrors.NetworkError(msg)
	default:
		b = ferrors.PricingError(msg)
	}
	return b.WithContext("status", status).WithContext("remote_code", wire.Code).Build()
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return ferrors.HasCategory(err, ferrors.CategoryNetwork)
}
