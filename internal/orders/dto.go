package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PlaceOrderInput carries a submitted order plus request context.
type PlaceOrderInput struct {
	Request checkout.PlaceOrderRequest
	// UserID is set when the shopper is signed in.
	UserID         *uuid.UUID
	IdempotencyKey string
	// Origin is the storefront base URL used for payment redirects.
	Origin string
}

// PlaceOrderResult is returned for a placed order. CheckoutURL is empty for cash orders.
type PlaceOrderResult struct {
	OrderID     uuid.UUID
	OrderNumber string
	CheckoutURL string
}

// Viewer identifies who is reading an order.
type Viewer struct {
	UserID *uuid.UUID
	Admin  bool
}

// OrderView is the confirmation page payload.
type OrderView struct {
	OrderNumber   string              `json:"order_number"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Tax           decimal.Decimal     `json:"tax"`
	ShippingCost  decimal.Decimal     `json:"shipping_cost"`
	Total         decimal.Decimal     `json:"total"`
	Shipping      ShippingView        `json:"shipping"`
	Items         []OrderItemView     `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

type ShippingView struct {
	FullName     string  `json:"full_name"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
	Phone        string  `json:"phone"`
}

type OrderItemView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// orderPlacedEvent is the order.placed payload.
type orderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"item_count"`
}

func newOrderView(order *models.Order) *OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return &OrderView{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      order.Subtotal,
		Tax:           order.Tax,
		ShippingCost:  order.ShippingCost,
		Total:         order.Total,
		Shipping: ShippingView{
			FullName:     order.ShippingName,
			AddressLine1: order.ShippingAddressLine1,
			AddressLine2: order.ShippingAddressLine2,
			City:         order.ShippingCity,
			PostalCode:   order.ShippingPostalCode,
			Country:      order.ShippingCountry,
			Phone:        order.ShippingPhone,
		},
		Items:     items,
		CreatedAt: order.CreatedAt,
	}
}
