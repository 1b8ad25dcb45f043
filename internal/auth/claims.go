package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for the owner API.
// ShopID must be present on every token; Role only on access tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	ShopID    string    `json:"shop_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
