package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const pgForeignKeyViolation = "23503"

type repository interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	ProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

// Service manages a shopper's favorite products.
type Service interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	IsFavorite(ctx context.Context, userID, productID uuid.UUID) (bool, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if err := requireIDs(userID, productID); err != nil {
		return err
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeDuplicate, err, "Already in wishlist")
		}
		if pg, ok := pkgerrors.Postgres(err); ok && pg.Code == pgForeignKeyViolation {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to add to wishlist")
	}
	return nil
}

// Remove is idempotent: removing an absent favorite succeeds.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := requireIDs(userID, productID); err != nil {
		return err
	}
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to remove from wishlist")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	ids, err := s.repo.ProductIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to load wishlist")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

func (s *service) IsFavorite(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	if productID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "Invalid data")
	}
	ok, err := s.repo.Exists(ctx, userID, productID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}
	return ok, nil
}

func requireIDs(userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid data")
	}
	return nil
}
