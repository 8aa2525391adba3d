package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type favoritePayload struct {
	ProductID uuid.UUID `json:"product_id"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// FavoritesAdd stores a favorite for the caller.
func FavoritesAdd(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return favoriteMutation(svc, logg, wishlist.Service.Add)
}

// FavoritesRemove deletes a favorite; removing a missing one still succeeds.
func FavoritesRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return favoriteMutation(svc, logg, wishlist.Service.Remove)
}

func favoriteMutation(svc wishlist.Service, logg *logger.Logger, apply func(wishlist.Service, context.Context, uuid.UUID, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID, err := requireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload favoritePayload
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := apply(svc, ctx, userID, payload.ProductID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusOK, successResponse{Success: true})
	}
}

// FavoritesList returns every product id the caller has favorited.
func FavoritesList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID, err := requireUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ids, err := svc.List(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusOK, map[string]any{"product_ids": ids})
	}
}

// FavoritesCheck reports whether the caller favorited a product. Guests get false.
func FavoritesCheck(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wishlist service unavailable"))
			return
		}
		userID := optionalUserID(ctx)
		if userID == nil {
			responses.WriteResult(w, http.StatusOK, map[string]bool{"isFavorite": false})
			return
		}
		productID, err := validators.ParseQueryUUID(r, "product_id", "Invalid data")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ok, err := svc.IsFavorite(ctx, *userID, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteResult(w, http.StatusOK, map[string]bool{"isFavorite": ok})
	}
}
