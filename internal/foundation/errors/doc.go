// Package errors provides the classified error primitives shared by pricewatch.
//
// A ClassifiedError carries a category, a severity and a retry strategy next to
// its message, cause and structured context. Errors are created through the
// fluent ErrorBuilder and presented by the CLI and HTTP adapters.
//
// Example usage:
//
//	err := errors.NetworkError("pricing endpoint unreachable").
//		WithContext("url", endpoint).
//		Build()
//
//	wrapped := errors.WrapError(cause, errors.CategoryPricing, "remote rejected configuration").
//		WithContext("status", resp.StatusCode).
//		Build()
package errors
