package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the header row created by the placement saga.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID               *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	OrderNumber          string              `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	Status               enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	PaymentStatus        enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Subtotal             decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax                  decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	ShippingCost         decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Total                decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingName         string              `gorm:"column:shipping_name;not null"`
	ShippingAddressLine1 string              `gorm:"column:shipping_address_line1;not null"`
	ShippingAddressLine2 *string             `gorm:"column:shipping_address_line2"`
	ShippingCity         string              `gorm:"column:shipping_city;not null"`
	ShippingPostalCode   string              `gorm:"column:shipping_postal_code;not null"`
	ShippingCountry      string              `gorm:"column:shipping_country;not null"`
	ShippingPhone        string              `gorm:"column:shipping_phone;not null"`
	GuestEmail           *string             `gorm:"column:guest_email"`
	StripeSessionID      *string             `gorm:"column:stripe_session_id"`
	IdempotencyKey       *string             `gorm:"column:idempotency_key"`
	Items                []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a cart line at placement time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	ProductSKU  string          `gorm:"column:product_sku;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
