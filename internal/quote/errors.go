package quote

import (
	"context"
	"errors"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// CodePriceCalculationFailed is the only error kind the coordinator surfaces.
const CodePriceCalculationFailed = "ERR_PRICE_CALC_FAILED"

var (
	// ErrPriceCalculationFailed matches every Failure via errors.Is.
	ErrPriceCalculationFailed = ferrors.PricingError("price calculation failed").
		WithContext("code", CodePriceCalculationFailed).
		Build()

	// ErrCoordinatorClosed is returned by operations after Close.
	ErrCoordinatorClosed = ferrors.RuntimeError("price coordinator is closed").Build()
)

// Failure is the committed error state of an authoritative failed attempt.
// Sub-kinds of the remote failure are not distinguished; Message and
// Retryable are informational.
type Failure struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	cause     error
}

func newFailure(err error) *Failure {
	f := &Failure{Code: CodePriceCalculationFailed, Message: err.Error(), cause: err}
	if classified, ok := ferrors.AsClassified(err); ok {
		f.Message = classified.Message()
		f.Retryable = classified.CanRetry()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		f.Message = "price calculation timed out"
		f.Retryable = true
	}
	return f
}

func (f *Failure) Error() string { return f.Code + ": " + f.Message }

// Unwrap returns the remote error, when known.
func (f *Failure) Unwrap() error { return f.cause }

// Is makes errors.Is(failure, ErrPriceCalculationFailed) hold.
func (f *Failure) Is(target error) bool {
	return target == ErrPriceCalculationFailed
}
