package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products for catalog browsing.
type Category struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product is the catalog listing. Rating and ReviewCount are denormalised from reviews.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex"`
	SKU           string           `gorm:"column:sku;not null"`
	Description   *string          `gorm:"column:description"`
	Image         *string          `gorm:"column:image"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(12,2)"`
	CategoryID    *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	Category      *Category        `gorm:"foreignKey:CategoryID"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0"`
	IsFeatured    bool             `gorm:"column:is_featured;not null;default:false"`
	IsNew         bool             `gorm:"column:is_new;not null;default:false"`
	Rating        decimal.Decimal  `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	ReviewCount   int              `gorm:"column:review_count;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
