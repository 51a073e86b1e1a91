package pricingsvc

import (
	"math"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// ruleEnv is the variable set visible to rule expressions.
func ruleEnv(cfg pricing.Configuration, product pricing.Product, unit, subtotal int64) map[string]any {
	selections := cfg.Selections
	if selections == nil {
		selections = map[string]string{}
	}
	addOns := cfg.AddOns
	if addOns == nil {
		addOns = []string{}
	}
	return map[string]any{
		"quantity":   cfg.Quantity,
		"unit_price": unit,
		"subtotal":   subtotal,
		"selections": selections,
		"add_ons":    addOns,
		"product":    product.ID,
		"currency":   product.Currency,
	}
}

// programCache compiles each expression once.
type programCache struct {
	mu       sync.RWMutex
	programs map[string]*exprvm.Program
}

func newProgramCache() *programCache {
	return &programCache{programs: make(map[string]*exprvm.Program)}
}

func (c *programCache) compile(expression string) (*exprvm.Program, error) {
	c.mu.RLock()
	p, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryPricing, "invalid rule expression").
			WithContext("expression", expression).
			Build()
	}

	c.mu.Lock()
	c.programs[expression] = p
	c.mu.Unlock()
	return p, nil
}

// evalRule returns the adjustment of rule and whether it applied.
func (c *programCache) evalRule(rule pricing.Rule, env map[string]any) (int64, bool, error) {
	if rule.When != "" {
		p, err := c.compile(rule.When)
		if err != nil {
			return 0, false, err
		}
		out, err := exprlang.Run(p, env)
		if err != nil {
			return 0, false, ruleError(rule, "rule condition failed", err)
		}
		ok, isBool := out.(bool)
		if !isBool {
			return 0, false, ruleError(rule, "rule condition is not boolean", nil)
		}
		if !ok {
			return 0, false, nil
		}
	}

	p, err := c.compile(rule.Adjust)
	if err != nil {
		return 0, false, err
	}
	out, err := exprlang.Run(p, env)
	if err != nil {
		return 0, false, ruleError(rule, "rule adjustment failed", err)
	}
	amount, ok := toMinorUnits(out)
	if !ok {
		return 0, false, ruleError(rule, "rule adjustment is not a number", nil)
	}
	return amount, true, nil
}

func ruleError(rule pricing.Rule, msg string, cause error) error {
	var b *ferrors.ErrorBuilder
	if cause != nil {
		b = ferrors.WrapError(cause, ferrors.CategoryPricing, msg)
	} else {
		b = ferrors.PricingError(msg)
	}
	return b.WithContext("rule", rule.Name).Build()
}

// toMinorUnits rounds a numeric expression result half away from zero.
func toMinorUnits(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(math.Round(float64(n))), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(math.Round(n)), true
	default:
		return 0, false
	}
}
