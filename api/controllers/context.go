package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func requireUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Unauthorized")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Unauthorized")
	}
	return id, nil
}

// optionalUserID returns nil for guests.
func optionalUserID(ctx context.Context) *uuid.UUID {
	id, err := requireUserID(ctx)
	if err != nil {
		return nil
	}
	return &id
}

func isAdmin(ctx context.Context) bool {
	return middleware.RoleFromContext(ctx) == string(enums.UserRoleAdmin)
}
