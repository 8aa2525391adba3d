package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PlaceOrder creates an order from the submitted cart snapshot. Card orders
// return the hosted payment page URL. Payment redirects only go back to an
// Origin listed in allowedOrigins; anything else falls back to publicOrigin.
func PlaceOrder(svc orders.Service, publicOrigin string, allowedOrigins []string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		var payload checkout.PlaceOrderRequest
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.PlaceOrder(ctx, orders.PlaceOrderInput{
			Request:        payload,
			UserID:         optionalUserID(ctx),
			IdempotencyKey: strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader)),
			Origin:         requestOrigin(r, publicOrigin, allowedOrigins),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteResult(w, http.StatusCreated, checkout.PlaceOrderResponse{
			Success:     true,
			OrderNumber: result.OrderNumber,
			CheckoutURL: result.CheckoutURL,
		})
	}
}

// GetOrder returns the confirmation view for an order number.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		number := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		view, err := svc.GetByNumber(ctx, number, orders.Viewer{
			UserID: optionalUserID(ctx),
			Admin:  isAdmin(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// requestOrigin prefers the browser's Origin header so redirects return to the
// storefront the shopper is on, as long as that storefront is allowlisted.
func requestOrigin(r *http.Request, fallback string, allowed []string) string {
	origin := strings.TrimRight(strings.TrimSpace(r.Header.Get("Origin")), "/")
	if origin != "" {
		for _, candidate := range allowed {
			if strings.EqualFold(origin, strings.TrimRight(strings.TrimSpace(candidate), "/")) {
				return origin
			}
		}
	}
	return strings.TrimRight(fallback, "/")
}
