package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestOwnerAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	o := Owner{Username: "dono", PasswordHash: string(hash), ShopID: "shop-1", Role: "owner"}

	if err := o.Authenticate("dono", "s3nha"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := o.Authenticate(" dono ", "s3nha"); err != nil {
		t.Fatalf("expected trimmed username to pass, got %v", err)
	}
	if err := o.Authenticate("dono", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := o.Authenticate("outro", "s3nha"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err := (Owner{Username: "dono"}).Authenticate("dono", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials without hash, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("abc")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(h), []byte("abc")) != nil {
		t.Fatalf("hash does not verify")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
