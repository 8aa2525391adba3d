package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

const defaultCurrency = "try"

var hundred = decimal.NewFromInt(100)

// StripeGateway creates Stripe Checkout sessions.
type StripeGateway struct {
	sessions pkgstripe.SessionAPI
	currency string
	logg     *logger.Logger
}

func NewStripeGateway(sessions pkgstripe.SessionAPI, currency string, logg *logger.Logger) (*StripeGateway, error) {
	if sessions == nil {
		return nil, errors.New("stripe session api required")
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &StripeGateway{sessions: sessions, currency: currency, logg: logg}, nil
}

// CreateCheckoutSession opens a card payment page for the order. Amounts are
// sent in the currency's minor unit.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	origin := strings.TrimRight(strings.TrimSpace(req.Origin), "/")
	if origin == "" {
		return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeInternal, "payment redirect origin is not configured")
	}
	if len(req.Items) == 0 {
		return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(fmt.Sprintf("%s/order/%s?session_id={CHECKOUT_SESSION_ID}", origin, url.PathEscape(req.OrderNumber))),
		CancelURL:          stripe.String(origin + "/checkout"),
		Metadata: map[string]string{
			"order_id":     req.OrderID.String(),
			"order_number": req.OrderNumber,
		},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		line := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(max(item.Quantity, 1))),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(minorUnits(item.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
		if item.SKU != "" {
			line.PriceData.ProductData.Metadata = map[string]string{"sku": item.SKU}
		}
		lineItems = append(lineItems, line)
	}
	params.LineItems = lineItems

	session, err := g.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, classifyStripeError(err)
	}
	if session == nil || session.URL == "" {
		return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeDependency, "stripe returned a session without a url")
	}

	g.logg.Info(g.logg.WithFields(ctx, map[string]any{
		"stripe_session_id": session.ID,
		"order_number":      req.OrderNumber,
	}), "payments.stripe.session_created")

	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// classifyStripeError keeps request errors as validation failures and treats
// everything else as a dependency outage.
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeInvalidRequest, stripe.ErrorTypeCard:
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment request rejected")
		case stripe.ErrorTypeIdempotency:
			return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "payment idempotency key reused")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe checkout session")
}
