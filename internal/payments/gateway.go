package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway opens hosted payment pages for card orders.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}

// LineItem is one priced row shown on the payment page.
type LineItem struct {
	Name      string
	SKU       string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CheckoutSessionRequest describes the order being paid for.
type CheckoutSessionRequest struct {
	OrderID        uuid.UUID
	OrderNumber    string
	CustomerEmail  string
	Origin         string
	Items          []LineItem
	IdempotencyKey string
}

// CheckoutSession is the hosted page the shopper is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}
