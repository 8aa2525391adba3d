package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgcheckout "github.com/angelmondragon/storefront-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// State is the lifecycle position of a checkout attempt.
type State string

const (
	StateIdle        State = "idle"
	StateSubmitting  State = "submitting"
	StateRedirecting State = "redirecting"
	StateConfirmed   State = "confirmed"
	StateFailed      State = "failed"
)

// ErrSubmissionInFlight is returned when Submit is called while a submission is running.
var ErrSubmissionInFlight = errors.New("order submission already in progress")

// OrderSubmitter sends a placement request to the API.
type OrderSubmitter interface {
	PlaceOrder(ctx context.Context, req pkgcheckout.PlaceOrderRequest, idempotencyKey string) (pkgcheckout.PlaceOrderResponse, error)
}

// Cart is the part of the cart store the flow reads and clears.
type Cart interface {
	Snapshot() []cart.LineItem
	ClearCart(ctx context.Context)
}

// Result describes a finished attempt.
type Result struct {
	State       State
	OrderNumber string
	CheckoutURL string
}

// Flow drives one shopper's order placement.
type Flow struct {
	cart      Cart
	submitter OrderSubmitter
	rules     pricing.Rules
	logg      *logger.Logger
	newKey    func() string

	mu      sync.Mutex
	state   State
	key     string
	result  Result
	lastErr error
}

// FlowOption customizes a Flow.
type FlowOption func(*Flow)

// WithKeyGenerator replaces the UUID idempotency key generator.
func WithKeyGenerator(fn func() string) FlowOption {
	return func(f *Flow) {
		if fn != nil {
			f.newKey = fn
		}
	}
}

// WithPendingKey resumes an attempt whose outcome is unknown, typically a key
// saved by a previous process after a timeout.
func WithPendingKey(key string) FlowOption {
	return func(f *Flow) {
		f.key = strings.TrimSpace(key)
	}
}

func NewFlow(c Cart, submitter OrderSubmitter, rules pricing.Rules, logg *logger.Logger, opts ...FlowOption) (*Flow, error) {
	if c == nil {
		return nil, fmt.Errorf("cart required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("order submitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	f := &Flow{
		cart:      c,
		submitter: submitter,
		rules:     rules,
		logg:      logg,
		newKey:    uuid.NewString,
		state:     StateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error of the last failed attempt.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// PendingKey returns the idempotency key of an attempt whose outcome is still
// unknown, or "" when the next submission starts a new attempt.
func (f *Flow) PendingKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateRedirecting || f.state == StateConfirmed {
		return ""
	}
	return f.key
}

// Reset returns a finished flow to Idle. A key whose attempt may still be
// placing an order survives the reset.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	f.state = StateIdle
	f.result = Result{}
	f.lastErr = nil
	return nil
}

// Submit validates shipping, places the order and settles the flow state.
// A failed attempt may be resubmitted directly. The idempotency key is only
// replaced after the server definitively rejected the request; timeouts,
// outages and in-flight replies keep it so the server can replay the outcome.
func (f *Flow) Submit(ctx context.Context, shipping pkgcheckout.ShippingInfo) (Result, error) {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return Result{}, ErrSubmissionInFlight
	case StateRedirecting, StateConfirmed:
		result := f.result
		f.mu.Unlock()
		return result, pkgerrors.New(pkgerrors.CodeStateConflict, "order already placed")
	}
	f.state = StateSubmitting
	f.mu.Unlock()

	shipping = shipping.Normalize()
	// Nothing has been sent yet, so any key from an earlier attempt stays valid.
	if err := pkgcheckout.ValidateShipping(shipping); err != nil {
		return f.fail(ctx, err, true)
	}

	req, err := f.buildRequest(shipping)
	if err != nil {
		return f.fail(ctx, err, true)
	}

	key := f.attemptKey()
	ctx = f.logg.WithFields(ctx, map[string]any{
		"idempotency_key": key,
		"payment_method":  string(shipping.PaymentMethod),
		"items":           len(req.Items),
	})
	f.logg.Info(ctx, "checkout.submit")

	resp, err := f.submitter.PlaceOrder(ctx, req, key)
	if err != nil {
		return f.fail(ctx, err, !rejected(err))
	}

	ctx = f.logg.WithOrderNumber(ctx, resp.OrderNumber)
	result := Result{OrderNumber: resp.OrderNumber, CheckoutURL: resp.CheckoutURL}
	if resp.CheckoutURL != "" {
		result.State = StateRedirecting
		f.logg.Info(ctx, "checkout.redirecting")
	} else {
		f.cart.ClearCart(ctx)
		result.State = StateConfirmed
		f.logg.Info(ctx, "checkout.confirmed")
	}

	f.mu.Lock()
	f.state = result.State
	f.result = result
	f.key = ""
	f.lastErr = nil
	f.mu.Unlock()
	return result, nil
}

func (f *Flow) buildRequest(shipping pkgcheckout.ShippingInfo) (pkgcheckout.PlaceOrderRequest, error) {
	lines := f.cart.Snapshot()
	if len(lines) == 0 {
		return pkgcheckout.PlaceOrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "Your cart is empty")
	}

	items := make([]pkgcheckout.OrderItem, 0, len(lines))
	for _, line := range lines {
		id, err := uuid.Parse(line.Product.ID)
		if err != nil {
			return pkgcheckout.PlaceOrderRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart contains an unknown product").
				WithDetails(map[string]string{"product_id": line.Product.ID})
		}
		items = append(items, pkgcheckout.OrderItem{
			ProductID:   id,
			ProductName: line.Product.Name,
			ProductSKU:  line.Product.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   *line.Product.Price,
		})
	}

	totals, err := pricing.Calculate(f.rules, pkgcheckout.Lines(items))
	if err != nil {
		return pkgcheckout.PlaceOrderRequest{}, err
	}
	return pkgcheckout.PlaceOrderRequest{
		Items:    items,
		Shipping: shipping,
		Totals:   totals.Rounded(),
	}, nil
}

func (f *Flow) attemptKey() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key == "" {
		f.key = f.newKey()
	}
	return f.key
}

// rejected reports whether the server refused the request without placing an
// order, so a new key cannot duplicate one.
func rejected(err error) bool {
	switch pkgerrors.Classify(err) {
	case pkgerrors.KindValidation, pkgerrors.KindConflict:
		return true
	}
	return false
}

func (f *Flow) fail(ctx context.Context, err error, keepKey bool) (Result, error) {
	switch pkgerrors.Classify(err) {
	case pkgerrors.KindTransient:
		f.logg.Error(ctx, "checkout.failed", err)
	default:
		f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "checkout.rejected")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateFailed
	f.lastErr = err
	f.result = Result{State: StateFailed}
	if !keepKey {
		f.key = ""
	}
	return f.result, err
}
