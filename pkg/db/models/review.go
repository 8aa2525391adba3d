package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a shopper's rating of a product; one per user and product.
type Review struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:reviews_user_id_product_id_key,priority:2"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_user_id_product_id_key,priority:1"`
	Rating           int       `gorm:"column:rating;not null"`
	Title            *string   `gorm:"column:title"`
	Comment          *string   `gorm:"column:comment"`
	VerifiedPurchase bool      `gorm:"column:verified_purchase;not null;default:false"`
	HelpfulCount     int       `gorm:"column:helpful_count;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ReviewHelpful records one user's helpful vote on a review.
type ReviewHelpful struct {
	ReviewID  uuid.UUID `gorm:"column:review_id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ReviewHelpful) TableName() string { return "review_helpful" }
