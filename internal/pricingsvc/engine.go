package pricingsvc

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// Engine computes price breakdowns. It is safe for concurrent use.
type Engine struct {
	formatter *Formatter
	programs  *programCache
	newID     func() string
}

// NewEngine returns an engine that formats totals for locale.
func NewEngine(locale string) (*Engine, error) {
	f, err := NewFormatter(locale)
	if err != nil {
		return nil, err
	}
	return &Engine{formatter: f, programs: newProgramCache(), newID: uuid.NewString}, nil
}

// Calculate prices cfg against product.
//
// Unknown options, add-ons or currencies are validation errors; failing
// rule expressions are pricing errors. The total never goes below zero.
func (e *Engine) Calculate(cfg pricing.Configuration, product pricing.Product) (pricing.Result, error) {
	if cfg.ProductID != "" && cfg.ProductID != product.ID {
		return pricing.Result{}, ferrors.ValidationError("configuration does not match product").
			WithContext("product_id", product.ID).
			WithContext("configuration_product_id", cfg.ProductID).
			Build()
	}
	if _, err := Scale(product.Currency); err != nil {
		return pricing.Result{}, err
	}
	qty := cfg.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return pricing.Result{}, ferrors.ValidationError("quantity must be positive").
			WithContext("quantity", qty).
			Build()
	}
	cfg.Quantity = qty

	bd := pricing.Breakdown{Currency: product.Currency}
	bd.Lines = append(bd.Lines, pricing.Line{Label: "Base price", Amount: product.BasePrice})
	unit := product.BasePrice

	for _, group := range slices.Sorted(maps.Keys(cfg.Selections)) {
		choice := cfg.Selections[group]
		choices, ok := product.Options[group]
		if !ok {
			return pricing.Result{}, ferrors.ValidationError("unknown option").
				WithContext("option", group).
				Build()
		}
		amount, ok := choices[choice]
		if !ok {
			return pricing.Result{}, ferrors.ValidationError("unknown option value").
				WithContext("option", group).
				WithContext("value", choice).
				Build()
		}
		bd.Lines = append(bd.Lines, pricing.Line{Label: group + ": " + choice, Amount: amount})
		unit += amount
	}

	addOns := slices.Sorted(slices.Values(cfg.AddOns))
	for _, name := range slices.Compact(addOns) {
		amount, ok := product.AddOns[name]
		if !ok {
			return pricing.Result{}, ferrors.ValidationError("unknown add-on").
				WithContext("add_on", name).
				Build()
		}
		bd.Lines = append(bd.Lines, pricing.Line{Label: "add-on: " + name, Amount: amount})
		unit += amount
	}

	bd.Subtotal = unit * int64(qty)
	bd.Total = bd.Subtotal

	env := ruleEnv(cfg, product, unit, bd.Subtotal)
	for _, rule := range product.Rules {
		amount, applied, err := e.programs.evalRule(rule, env)
		if err != nil {
			return pricing.Result{}, err
		}
		if !applied || amount == 0 {
			continue
		}
		bd.Adjustments = append(bd.Adjustments, pricing.Line{Label: rule.Name, Amount: amount})
		bd.Total += amount
	}
	bd.Total = max(bd.Total, 0)

	formatted, err := e.formatter.Format(bd.Total, product.Currency)
	if err != nil {
		return pricing.Result{}, err
	}
	return pricing.Result{Breakdown: bd, FormattedTotal: formatted, RequestID: e.newID()}, nil
}
