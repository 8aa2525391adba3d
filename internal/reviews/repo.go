package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// HasPurchased reports whether the user owns an order containing the product.
func (r *Repository) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ?", userID, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// ToggleHelpful flips the user's vote, rewrites helpful_count from the vote
// table and returns whether the vote is now present.
func (r *Repository) ToggleHelpful(ctx context.Context, reviewID, userID uuid.UUID) (bool, int, error) {
	db := r.db.WithContext(ctx)

	var existing models.ReviewHelpful
	err := db.Where("review_id = ? AND user_id = ?", reviewID, userID).Take(&existing).Error
	voted := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&models.ReviewHelpful{ReviewID: reviewID, UserID: userID}).Error; err != nil {
			return false, 0, err
		}
		voted = true
	case err != nil:
		return false, 0, err
	default:
		if err := db.Where("review_id = ? AND user_id = ?", reviewID, userID).Delete(&models.ReviewHelpful{}).Error; err != nil {
			return false, 0, err
		}
	}

	var count int64
	if err := db.Model(&models.ReviewHelpful{}).Where("review_id = ?", reviewID).Count(&count).Error; err != nil {
		return false, 0, err
	}
	if err := db.Model(&models.Review{}).Where("id = ?", reviewID).Update("helpful_count", count).Error; err != nil {
		return false, 0, err
	}
	return voted, int(count), nil
}
