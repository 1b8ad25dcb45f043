package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEntry = errors.New("history: invalid entry")

const defaultRecentLimit = 20

// Service journals conversation messages. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("history: repository not configured")
	}
	if e.CustomerID == "" || !e.Direction.Valid() {
		return ErrInvalidEntry
	}
	if strings.TrimSpace(e.Body) == "" {
		return ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Inbound records a customer message.
func (s *Service) Inbound(ctx context.Context, customerID, body string) error {
	return s.Append(ctx, Entry{CustomerID: customerID, Direction: DirectionIn, Body: body})
}

// Outbound records a message sent to the customer.
func (s *Service) Outbound(ctx context.Context, customerID, body string) error {
	return s.Append(ctx, Entry{CustomerID: customerID, Direction: DirectionOut, Body: body})
}

func (s *Service) Recent(ctx context.Context, customerID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return s.repo.Recent(ctx, customerID, limit)
}
