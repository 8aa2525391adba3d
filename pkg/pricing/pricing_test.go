package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCalculateBelowThresholdChargesShipping(t *testing.T) {
	totals, err := Calculate(DefaultRules(), []Line{{UnitPrice: dec("500"), Quantity: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTotals(t, totals, "1500", "50", "270", "1820")
}

func TestCalculateAboveThresholdShipsFree(t *testing.T) {
	totals, err := Calculate(DefaultRules(), []Line{
		{UnitPrice: dec("1000"), Quantity: 2},
		{UnitPrice: dec("250"), Quantity: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTotals(t, totals, "2500", "0", "450", "2950")
}

func TestCalculateAtThresholdStillChargesShipping(t *testing.T) {
	totals, err := Calculate(DefaultRules(), []Line{{UnitPrice: dec("2000"), Quantity: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !totals.Shipping.Equal(dec("50")) {
		t.Fatalf("expected shipping 50 at the threshold, got %s", totals.Shipping)
	}
}

func TestCalculateEmptyCart(t *testing.T) {
	totals, err := Calculate(DefaultRules(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTotals(t, totals, "0", "50", "0", "50")
}

func TestCalculateIsDeterministic(t *testing.T) {
	lines := []Line{{UnitPrice: dec("19.99"), Quantity: 7}, {UnitPrice: dec("0.01"), Quantity: 3}}
	first, err := Calculate(DefaultRules(), lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Calculate(DefaultRules(), lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Total.Equal(second.Total) || !first.Tax.Equal(second.Tax) || !first.Subtotal.Equal(second.Subtotal) || !first.Shipping.Equal(second.Shipping) {
		t.Fatalf("expected identical totals, got %+v and %+v", first, second)
	}
}

func TestCalculateRejectsNegativeInput(t *testing.T) {
	_, err := Calculate(DefaultRules(), []Line{{UnitPrice: dec("-1"), Quantity: 1}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = Calculate(DefaultRules(), []Line{{UnitPrice: dec("1"), Quantity: -2}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRoundedUsesTwoDecimals(t *testing.T) {
	totals, err := Calculate(DefaultRules(), []Line{{UnitPrice: dec("10.555"), Quantity: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rounded := totals.Rounded()
	if rounded.Tax.String() != "1.9" {
		t.Fatalf("expected tax 1.9 got %s", rounded.Tax)
	}
	if rounded.Subtotal.String() != "10.56" {
		t.Fatalf("expected subtotal 10.56 got %s", rounded.Subtotal)
	}
}

func TestVerify(t *testing.T) {
	computed := FromSubtotal(DefaultRules(), dec("1500"))

	if err := Verify(computed, computed, DefaultTolerance); err != nil {
		t.Fatalf("expected identical totals to verify, got %v", err)
	}

	claimed := computed
	claimed.Total = dec("1819.995")
	if err := Verify(claimed, computed, DefaultTolerance); err != nil {
		t.Fatalf("expected rounding difference to be tolerated, got %v", err)
	}

	claimed.Shipping = decimal.Zero
	claimed.Total = dec("1770")
	err := Verify(claimed, computed, DefaultTolerance)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected map details, got %T", typed.Details())
	}
	if _, ok := details["shipping"]; !ok {
		t.Fatalf("expected shipping mismatch, got %v", details)
	}
	if _, ok := details["total"]; !ok {
		t.Fatalf("expected total mismatch, got %v", details)
	}
	if _, ok := details["subtotal"]; ok {
		t.Fatalf("subtotal should match, got %v", details)
	}
}

func TestRulesValidate(t *testing.T) {
	rules := DefaultRules()
	if err := rules.Validate(); err != nil {
		t.Fatalf("default rules should validate: %v", err)
	}
	rules.TaxRate = dec("-0.1")
	if err := rules.Validate(); err == nil {
		t.Fatal("expected negative tax rate to fail")
	}
}

func assertTotals(t *testing.T, got Totals, subtotal, shipping, tax, total string) {
	t.Helper()
	if !got.Subtotal.Equal(dec(subtotal)) {
		t.Fatalf("subtotal: expected %s got %s", subtotal, got.Subtotal)
	}
	if !got.Shipping.Equal(dec(shipping)) {
		t.Fatalf("shipping: expected %s got %s", shipping, got.Shipping)
	}
	if !got.Tax.Equal(dec(tax)) {
		t.Fatalf("tax: expected %s got %s", tax, got.Tax)
	}
	if !got.Total.Equal(dec(total)) {
		t.Fatalf("total: expected %s got %s", total, got.Total)
	}
}
