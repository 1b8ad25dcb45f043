package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "customers_phone_key"}
	if !IsUniqueViolation(dup) {
		t.Fatalf("expected unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("insert customer: %w", dup)) {
		t.Fatalf("expected wrapped unique violation")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Fatalf("plain errors are not unique violations")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("reserve: %w", &pgconn.PgError{Code: "40P01"})) {
		t.Fatalf("deadlock should be retryable")
	}
	if !IsRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("serialization failure should be retryable")
	}
	if IsRetryable(&pgconn.PgError{Code: "23505"}) || IsRetryable(errors.New("boom")) {
		t.Fatalf("unexpected retryable")
	}
}

func TestPostgresPoolDefaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns != 10 || c.MaxIdleConns != 5 {
		t.Fatalf("unexpected pool sizes: %+v", c)
	}
	if c.PingTimeout <= 0 || c.ConnMaxLifetime <= 0 {
		t.Fatalf("expected positive timeouts: %+v", c)
	}
	c = PostgresPoolConfig{MaxOpenConns: 2, MaxIdleConns: 8}.withDefaults()
	if c.MaxIdleConns != 2 {
		t.Fatalf("idle conns must not exceed open conns: %+v", c)
	}
}
