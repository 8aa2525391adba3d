package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
)

const uniqueReviewConstraint = "reviews_user_id_product_id_key"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// catalogInvalidator drops cached product detail after its rating changes.
type catalogInvalidator interface {
	Invalidate(ctx context.Context, slug string)
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error)
	List(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error)
	ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (*HelpfulResult, error)
}

type service struct {
	tx       txRunner
	repo     *Repository
	products *products.Repository
	catalog  catalogInvalidator
	logg     *logger.Logger
}

func NewService(tx txRunner, repo *Repository, productRepo *products.Repository, catalog catalogInvalidator, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil || productRepo == nil {
		return nil, fmt.Errorf("reviews and products repositories required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{tx: tx, repo: repo, products: productRepo, catalog: catalog, logg: logg}, nil
}

// Create stores the review and refreshes the product's rating and
// review_count in the same transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	if err := validate.Struct(input); err != nil {
		return nil, invalidData(err)
	}

	review := models.Review{
		ProductID: input.ProductID,
		UserID:    userID,
		Rating:    input.Rating,
		Title:     trimmed(input.Title),
		Comment:   trimmed(input.Comment),
	}
	var slug string

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		purchased, err := repo.HasPurchased(ctx, userID, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check purchase history")
		}
		review.VerifiedPurchase = purchased

		if err := repo.Create(ctx, &review); err != nil {
			if db.IsUniqueViolation(err, uniqueReviewConstraint) {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "You have already reviewed this product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to create review")
		}

		product, err := s.products.WithTx(tx).RecomputeRating(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product rating")
		}
		slug = product.Slug
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.catalog != nil {
		s.catalog.Invalidate(ctx, slug)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"review_id":  review.ID.String(),
		"product_id": review.ProductID.String(),
		"verified":   review.VerifiedPurchase,
	}), "reviews.created")

	dto := newReviewDTO(review)
	return &dto, nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID) ([]ReviewDTO, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID required")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newReviewDTO(row))
	}
	return out, nil
}

func (s *service) ToggleHelpful(ctx context.Context, userID, reviewID uuid.UUID) (*HelpfulResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	if reviewID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid data")
	}

	var result HelpfulResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, reviewID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		voted, count, err := repo.ToggleHelpful(ctx, reviewID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle helpful vote")
		}
		result = HelpfulResult{Voted: voted, HelpfulCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func invalidData(err error) error {
	out := pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid data")
	if typed := pkgerrors.As(err); typed != nil && typed.Details() != nil {
		out = out.WithDetails(typed.Details())
	}
	return out
}
