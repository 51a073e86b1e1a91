package pricing

import (
	"context"
	"maps"
	"slices"
)

// EmptyTotal is the formatted total shown when no configuration is active.
const EmptyTotal = "$0.00"

// Configuration is one snapshot of the user's selections for a product.
type Configuration struct {
	ProductID  string            `json:"product_id" yaml:"product_id"`
	Selections map[string]string `json:"selections,omitempty" yaml:"selections,omitempty"`
	AddOns     []string          `json:"add_ons,omitempty" yaml:"add_ons,omitempty"`
	Quantity   int               `json:"quantity" yaml:"quantity"`
}

// Clone returns a deep copy so a snapshot cannot be changed through aliases
// held by the caller.
func (c Configuration) Clone() Configuration {
	out := c
	out.Selections = maps.Clone(c.Selections)
	out.AddOns = slices.Clone(c.AddOns)
	return out
}

// Product describes a configurable product and its price components.
// Amounts are in minor currency units.
type Product struct {
	ID        string                      `json:"id" yaml:"id"`
	Name      string                      `json:"name" yaml:"name"`
	Currency  string                      `json:"currency" yaml:"currency"`
	BasePrice int64                       `json:"base_price" yaml:"base_price"`
	Options   map[string]map[string]int64 `json:"options,omitempty" yaml:"options,omitempty"`
	AddOns    map[string]int64            `json:"add_ons,omitempty" yaml:"add_ons,omitempty"`
	Rules     []Rule                      `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Rule is a conditional adjustment evaluated by the pricing service.
// When and Adjust are expressions over quantity, subtotal, selections and add_ons.
type Rule struct {
	Name   string `json:"name" yaml:"name"`
	When   string `json:"when,omitempty" yaml:"when,omitempty"`
	Adjust string `json:"adjust" yaml:"adjust"`
}

// Line is one labelled amount in a breakdown.
type Line struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// Breakdown is the itemised price returned by the pricing service.
type Breakdown struct {
	Currency    string `json:"currency"`
	Lines       []Line `json:"lines"`
	Subtotal    int64  `json:"subtotal"`
	Adjustments []Line `json:"adjustments,omitempty"`
	Total       int64  `json:"total"`
}

// Clone returns a copy that shares no slices with b.
func (b Breakdown) Clone() Breakdown {
	out := b
	out.Lines = slices.Clone(b.Lines)
	out.Adjustments = slices.Clone(b.Adjustments)
	return out
}

// Result is what one remote pricing call returns.
//
// RequestID is assigned by the remote side. It is informational only and
// must not be used to order results.
type Result struct {
	Breakdown      Breakdown `json:"breakdown"`
	FormattedTotal string    `json:"formatted_total"`
	RequestID      string    `json:"request_id,omitempty"`
}

// Calculator is the remote pricing operation.
type Calculator interface {
	CalculatePrice(ctx context.Context, cfg Configuration, product Product) (Result, error)
}

// CalculatorFunc adapts a function to Calculator.
type CalculatorFunc func(ctx context.Context, cfg Configuration, product Product) (Result, error)

// CalculatePrice implements Calculator.
func (f CalculatorFunc) CalculatePrice(ctx context.Context, cfg Configuration, product Product) (Result, error) {
	return f(ctx, cfg, product)
}
