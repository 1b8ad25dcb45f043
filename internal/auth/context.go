package auth

import (
	"context"
	"errors"
)

// ErrNoIdentity is returned when a request reached a handler unauthenticated.
var ErrNoIdentity = errors.New("auth: no identity in context")

// Identity is who is calling the owner API.
type Identity struct {
	UserID string `json:"user_id"`
	ShopID string `json:"shop_id"`
	Role   string `json:"role"`
}

type identityKey struct{}

func WithIdentity(ctx context.Context, userID, shopID, role string) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, ShopID: shopID, Role: role})
}

// IdentityFrom returns the caller set by RequireAccessToken.
func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

func UserID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	return id.UserID, err
}

func ShopID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err == nil && id.ShopID == "" {
		err = ErrNoIdentity
	}
	return id.ShopID, err
}

func Role(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err == nil && id.Role == "" {
		err = ErrNoIdentity
	}
	return id.Role, err
}
