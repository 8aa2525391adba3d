package reviews

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CreateInput is the body of POST /api/reviews.
type CreateInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Title     *string   `json:"title,omitempty" validate:"omitempty,max=200"`
	Comment   *string   `json:"comment,omitempty" validate:"omitempty,max=5000"`
}

type ReviewDTO struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	UserID           uuid.UUID `json:"user_id"`
	Rating           int       `json:"rating"`
	Title            *string   `json:"title"`
	Comment          *string   `json:"comment"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	HelpfulCount     int       `json:"helpful_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// HelpfulResult reports the caller's vote after a toggle.
type HelpfulResult struct {
	Voted        bool `json:"voted"`
	HelpfulCount int  `json:"helpful_count"`
}

func newReviewDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:               r.ID,
		ProductID:        r.ProductID,
		UserID:           r.UserID,
		Rating:           r.Rating,
		Title:            r.Title,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		HelpfulCount:     r.HelpfulCount,
		CreatedAt:        r.CreatedAt,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
