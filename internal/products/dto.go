package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO is the public catalog shape.
type ProductDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	SKU           string           `json:"sku"`
	Description   *string          `json:"description,omitempty"`
	Image         *string          `json:"image"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Category      *CategoryDTO     `json:"category,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
	IsFeatured    bool             `json:"is_featured"`
	IsNew         bool             `json:"is_new"`
	Rating        decimal.Decimal  `json:"rating"`
	ReviewCount   int              `json:"review_count"`
	CreatedAt     time.Time        `json:"created_at"`
}

type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ListFilters narrows a catalog listing. Nil booleans do not filter.
type ListFilters struct {
	CategorySlug string
	Featured     *bool
	New          *bool
}

// ListInput is a paginated catalog request.
type ListInput struct {
	Filters ListFilters
	Limit   int
	Cursor  string
}

func newProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		SKU:           p.SKU,
		Description:   p.Description,
		Image:         p.Image,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		StockQuantity: p.StockQuantity,
		IsFeatured:    p.IsFeatured,
		IsNew:         p.IsNew,
		Rating:        p.Rating,
		ReviewCount:   p.ReviewCount,
		CreatedAt:     p.CreatedAt,
	}
	if p.Category != nil {
		dto.Category = &CategoryDTO{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	return dto
}
