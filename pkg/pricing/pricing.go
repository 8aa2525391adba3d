package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// DefaultTolerance is the largest difference accepted when comparing claimed totals.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Rules holds the constants the totals depend on.
type Rules struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultRules returns the storefront's standard pricing: free shipping above 2000,
// a flat fee of 50 otherwise and 18% tax.
func DefaultRules() Rules {
	return Rules{
		FreeShippingThreshold: decimal.NewFromInt(2000),
		FlatShippingFee:       decimal.NewFromInt(50),
		TaxRate:               decimal.RequireFromString("0.18"),
	}
}

// Validate rejects negative constants.
func (r Rules) Validate() error {
	if r.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("free shipping threshold must not be negative")
	}
	if r.FlatShippingFee.IsNegative() {
		return fmt.Errorf("flat shipping fee must not be negative")
	}
	if r.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative")
	}
	return nil
}

// Line is one priced entry fed into the calculator.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the derived breakdown. It is never stored.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Rounded returns the totals rounded to two decimal places for display and transport.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Shipping: t.Shipping.Round(2),
		Tax:      t.Tax.Round(2),
		Total:    t.Total.Round(2),
	}
}

// Calculate derives the totals for lines under rules.
func Calculate(rules Rules, lines []Line) (Totals, error) {
	subtotal := decimal.Zero
	for i, line := range lines {
		if line.UnitPrice.IsNegative() {
			return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity < 0 {
			return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
				WithDetails(map[string]any{"line": i})
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return FromSubtotal(rules, subtotal), nil
}

// FromSubtotal applies shipping and tax to an already summed subtotal.
func FromSubtotal(rules Rules, subtotal decimal.Decimal) Totals {
	shipping := rules.FlatShippingFee
	if subtotal.GreaterThan(rules.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(rules.TaxRate)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Verify compares totals claimed by a client with freshly computed ones.
func Verify(claimed, computed Totals, tolerance decimal.Decimal) error {
	mismatches := map[string]string{}
	check := func(field string, got, want decimal.Decimal) {
		if got.Sub(want).Abs().GreaterThan(tolerance) {
			mismatches[field] = fmt.Sprintf("expected %s got %s", want.StringFixed(2), got.StringFixed(2))
		}
	}
	check("subtotal", claimed.Subtotal, computed.Subtotal)
	check("shipping", claimed.Shipping, computed.Shipping)
	check("tax", claimed.Tax, computed.Tax)
	check("total", claimed.Total, computed.Total)
	if len(mismatches) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "order totals do not match").WithDetails(mismatches)
}
