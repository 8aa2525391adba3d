package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/saga"
)

const (
	orderNumberConstraint = "orders_order_number_key"
	orderNumberAttempts   = 3
	shippingCountry       = "Turkey"
	eventOrderPlaced      = "order.placed"
	publishTimeout        = 5 * time.Second

	stepHeader  = "order.header"
	stepItems   = "order.items"
	stepPayment = "order.payment_session"
)

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event pubsub.Event) error
}

// Service places orders and serves confirmation lookups.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	GetByNumber(ctx context.Context, orderNumber string, viewer Viewer) (*OrderView, error)
}

type service struct {
	repo      Repository
	gateway   payments.Gateway
	publisher EventPublisher
	metrics   *metrics.CheckoutMetrics
	rules     pricing.Rules
	logg      *logger.Logger
	now       func() time.Time
	random    io.Reader
}

// NewService builds the order service. gateway may be nil when card payments
// are disabled; publisher and checkoutMetrics are optional.
func NewService(
	repo Repository,
	gateway payments.Gateway,
	publisher EventPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	rules pricing.Rules,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		metrics:   checkoutMetrics,
		rules:     rules,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (result *PlaceOrderResult, err error) {
	req := input.Request
	req.Shipping = req.Shipping.Normalize()
	method := req.Shipping.PaymentMethod

	started := s.now()
	defer func() {
		outcome := "placed"
		if err != nil {
			outcome = string(pkgerrors.Classify(err))
		}
		s.metrics.ObservePlacement(outcome, string(method), s.now().Sub(started))
	}()

	if err := checkout.ValidateOrder(req); err != nil {
		return nil, err
	}
	computed, err := pricing.Calculate(s.rules, checkout.Lines(req.Items))
	if err != nil {
		return nil, err
	}
	if err := pricing.Verify(req.Totals, computed, pricing.DefaultTolerance); err != nil {
		return nil, err
	}
	if method.RequiresRedirect() && s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not available")
	}

	order := s.buildOrder(req, computed.Rounded(), input)
	items := buildItems(req.Items)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_method": string(method),
		"items":          len(items),
	})

	var checkoutURL string
	flow := saga.New(
		saga.Step{
			Name:   stepHeader,
			Action: func(ctx context.Context) error { return s.insertHeader(ctx, order) },
			Compensate: func(ctx context.Context) error {
				return s.repo.DeleteOrder(ctx, order.ID)
			},
		},
		saga.Step{
			Name: stepItems,
			Action: func(ctx context.Context) error {
				for i := range items {
					items[i].OrderID = order.ID
				}
				return s.repo.CreateItems(ctx, items)
			},
			Compensate: func(ctx context.Context) error {
				return s.repo.DeleteItems(ctx, order.ID)
			},
		},
	)
	if method.RequiresRedirect() {
		flow.Add(saga.Step{
			Name: stepPayment,
			Action: func(ctx context.Context) error {
				url, err := s.openPaymentSession(ctx, order, items, input)
				checkoutURL = url
				return err
			},
		})
	}

	if err := flow.Run(ctx); err != nil {
		return nil, s.placementError(ctx, order, err)
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(ctx, "orders.placed")
	s.publishPlaced(ctx, order, len(items))

	return &PlaceOrderResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CheckoutURL: checkoutURL,
	}, nil
}

func (s *service) buildOrder(req checkout.PlaceOrderRequest, totals pricing.Totals, input PlaceOrderInput) *models.Order {
	shipping := req.Shipping
	email := shipping.Email
	order := &models.Order{
		ID:                   uuid.New(),
		UserID:               input.UserID,
		Status:               enums.OrderStatusPending,
		PaymentStatus:        enums.PaymentStatusPending,
		PaymentMethod:        shipping.PaymentMethod,
		Subtotal:             totals.Subtotal,
		Tax:                  totals.Tax,
		ShippingCost:         totals.Shipping,
		Total:                totals.Total,
		ShippingName:         shipping.FullName,
		ShippingAddressLine1: shipping.AddressLine1,
		ShippingCity:         shipping.City,
		ShippingPostalCode:   shipping.PostalCode,
		ShippingCountry:      shippingCountry,
		ShippingPhone:        shipping.Phone,
		GuestEmail:           &email,
	}
	if shipping.AddressLine2 != "" {
		line2 := shipping.AddressLine2
		order.ShippingAddressLine2 = &line2
	}
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		order.IdempotencyKey = &key
	}
	return order
}

func buildItems(in []checkout.OrderItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(in))
	for _, item := range in {
		items = append(items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return items
}

// insertHeader writes the order row, drawing a fresh number when the previous
// one collided with an existing order.
func (s *service) insertHeader(ctx context.Context, order *models.Order) error {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		number, err := newOrderNumber(s.now(), s.random)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to create order")
		}
		order.OrderNumber = number

		err = s.repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, orderNumberConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to create order")
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "orders.order_number_collision")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate an order number")
}

func (s *service) openPaymentSession(ctx context.Context, order *models.Order, items []models.OrderItem, input PlaceOrderInput) (string, error) {
	lines := make([]payments.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, payments.LineItem{
			Name:      item.ProductName,
			SKU:       item.ProductSKU,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		key = order.ID.String()
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerEmail:  input.Request.Shipping.Email,
		Origin:         input.Origin,
		Items:          lines,
		IdempotencyKey: "checkout-session:" + key,
	})
	if err != nil {
		return "", err
	}
	if err := s.repo.SetStripeSession(ctx, order.ID, session.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to record payment session")
	}
	order.StripeSessionID = &session.ID
	return session.URL, nil
}

func (s *service) placementError(ctx context.Context, order *models.Order, err error) error {
	var stepErr *saga.StepError
	if !errors.As(err, &stepErr) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Internal server error")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"failed_step": stepErr.Step,
		"compensated": stepErr.Compensated,
	})
	for _, step := range stepErr.Compensated {
		s.metrics.IncCompensation(step)
	}
	if stepErr.CompensationErr != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "orders.compensation_failed", stepErr.CompensationErr)
	}

	if typed := pkgerrors.As(stepErr.Err); typed != nil {
		return typed
	}
	if stepErr.Step == stepItems {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, stepErr.Err, "Failed to create order items")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, stepErr.Err, "Failed to create order")
}

// publishPlaced emits order.placed. Delivery is best effort; the order is already committed.
func (s *service) publishPlaced(ctx context.Context, order *models.Order, itemCount int) {
	if s.publisher == nil {
		return
	}
	event, err := pubsub.NewEvent(eventOrderPlaced, orderPlacedEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		ItemCount:     itemCount,
	}, s.now())
	if err != nil {
		s.logg.Error(ctx, "orders.event_encode_failed", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.logg.Error(ctx, "orders.event_publish_failed", err)
	}
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string, viewer Viewer) (*OrderView, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	// Orders placed by a signed-in shopper stay private to them.
	if order.UserID != nil && !viewer.Admin {
		if viewer.UserID == nil || *viewer.UserID != *order.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
	}
	return newOrderView(order), nil
}
