package pricingsvc

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// Formatter renders amounts in minor units as localized currency strings.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter returns a formatter for the BCP 47 locale tag.
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid locale").
			WithContext("locale", locale).
			Build()
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}, nil
}

// Scale returns the number of minor digits for an ISO 4217 code.
func Scale(code string) (int, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, ferrors.ValidationError("unknown currency").WithContext("currency", code).Build()
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale, nil
}

// Format renders minor units of code, e.g. 59900 USD as "$599.00" in en-US.
func (f *Formatter) Format(minor int64, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", ferrors.ValidationError("unknown currency").WithContext("currency", code).Build()
	}
	scale, _ := currency.Standard.Rounding(unit)

	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	major := float64(minor) / math.Pow10(scale)
	symbol := f.printer.Sprint(currency.NarrowSymbol(unit))
	amount := f.printer.Sprint(number.Decimal(major, number.Scale(scale)))
	return sign + symbol + amount, nil
}
