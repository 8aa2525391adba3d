package checkout

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
)

// ShippingInfo is the shipping form submitted with an order.
type ShippingInfo struct {
	Email         string              `json:"email" validate:"required,email"`
	FullName      string              `json:"fullName" validate:"required,max=200"`
	AddressLine1  string              `json:"addressLine1" validate:"required,max=300"`
	AddressLine2  string              `json:"addressLine2,omitempty" validate:"max=300"`
	City          string              `json:"city" validate:"required,max=100"`
	PostalCode    string              `json:"postalCode" validate:"required,max=20"`
	Phone         string              `json:"phone" validate:"required,max=30"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=card cash"`
}

// Normalize trims every free-text field.
func (s ShippingInfo) Normalize() ShippingInfo {
	s.Email = strings.TrimSpace(s.Email)
	s.FullName = strings.TrimSpace(s.FullName)
	s.AddressLine1 = strings.TrimSpace(s.AddressLine1)
	s.AddressLine2 = strings.TrimSpace(s.AddressLine2)
	s.City = strings.TrimSpace(s.City)
	s.PostalCode = strings.TrimSpace(s.PostalCode)
	s.Phone = strings.TrimSpace(s.Phone)
	s.PaymentMethod = enums.PaymentMethod(strings.ToLower(strings.TrimSpace(string(s.PaymentMethod))))
	return s
}

// ValidateShipping checks the shipping form. Failures carry field-level details keyed by json name.
func ValidateShipping(info ShippingInfo) error {
	return validate.Struct(info.Normalize())
}

// OrderItem is one cart line as submitted for placement.
type OrderItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name" validate:"required"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PlaceOrderRequest is the body of the order creation endpoint.
type PlaceOrderRequest struct {
	Items    []OrderItem    `json:"items" validate:"required,min=1,dive"`
	Shipping ShippingInfo   `json:"shipping"`
	Totals   pricing.Totals `json:"totals"`
}

// PlaceOrderResponse is the success body of the order creation endpoint.
type PlaceOrderResponse struct {
	Success     bool   `json:"success"`
	OrderNumber string `json:"orderNumber"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
}

// ValidateOrder checks shipping and items. Prices are validated here because the
// struct validator cannot compare decimals.
func ValidateOrder(req PlaceOrderRequest) error {
	req.Shipping = req.Shipping.Normalize()
	if err := validate.Struct(req); err != nil {
		return err
	}
	details := map[string]string{}
	for i, item := range req.Items {
		prefix := "items[" + strconv.Itoa(i) + "]"
		if item.ProductID == uuid.Nil {
			details[prefix+".product_id"] = "is required"
		}
		if item.UnitPrice.IsNegative() {
			details[prefix+".unit_price"] = "must not be negative"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

// Lines converts submitted items into pricing lines.
func Lines(items []OrderItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return lines
}

