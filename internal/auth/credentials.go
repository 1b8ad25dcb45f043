package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Owner is the single shop operator allowed on the owner API.
type Owner struct {
	Username     string
	PasswordHash string
	ShopID       string
	Role         string
}

// Authenticate checks username and password against the configured owner.
// The bcrypt comparison always runs so a wrong username costs the same.
func (o Owner) Authenticate(username, password string) error {
	if o.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	nameOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(o.Username)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password))
	if !nameOK || err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces the value expected in OWNER_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
