package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Product is the catalog data supplied when adding to the cart.
type Product struct {
	ID            string
	Name          string
	Slug          string
	SKU           string
	Image         *string
	Price         *decimal.Decimal
	StockQuantity int
	VariantID     *string
	VariantName   *string
}

// ProductSnapshot is the copy of a product taken at add-time. Later catalog
// changes do not alter it until the same product is added again.
type ProductSnapshot struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	SKU           string           `json:"sku,omitempty"`
	Image         *string          `json:"image"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity int              `json:"stock_quantity"`
	VariantID     *string          `json:"variantId,omitempty"`
	VariantName   *string          `json:"variantName,omitempty"`
}

// LineItem is one cart entry.
type LineItem struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// Key returns the identity of the line.
func (l LineItem) Key() Key {
	return NewKey(l.Product.ID, l.Product.VariantID)
}

// Subtotal is unit price times quantity. Lines without a price count as zero.
func (l LineItem) Subtotal() decimal.Decimal {
	if l.Product.Price == nil {
		return decimal.Zero
	}
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Valid reports whether the line can be priced and submitted.
func (l LineItem) Valid() bool {
	return strings.TrimSpace(l.Product.ID) != "" &&
		l.Product.Price != nil &&
		!l.Product.Price.IsNegative() &&
		l.Quantity >= 1
}

// Key identifies a line by product and variant. A nil variant and an empty
// variant are the same key.
type Key struct {
	ProductID string
	VariantID string
}

func NewKey(productID string, variantID *string) Key {
	k := Key{ProductID: productID}
	if variantID != nil {
		k.VariantID = *variantID
	}
	return k
}

// State is the persisted cart blob.
type State struct {
	Items []LineItem `json:"items"`
}

func snapshotOf(p Product) ProductSnapshot {
	price := *p.Price
	return ProductSnapshot{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		SKU:           p.SKU,
		Image:         p.Image,
		Price:         &price,
		StockQuantity: p.StockQuantity,
		VariantID:     normalizeVariant(p.VariantID),
		VariantName:   p.VariantName,
	}
}

func normalizeVariant(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	out := *v
	return &out
}
