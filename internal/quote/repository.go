package quote

import (
	"context"
	"time"
)

// Repository persists quotes. There is no delete.
type Repository interface {
	Insert(ctx context.Context, q Quote) error
	Get(ctx context.Context, id string) (Quote, error)
	Update(ctx context.Context, q Quote) error
	// List returns quotes newest first; an empty status means all.
	List(ctx context.Context, status Status, limit int) ([]Quote, error)
	// CreatedBetween returns quotes with from <= created_at < to, oldest first.
	CreatedBetween(ctx context.Context, from, to time.Time) ([]Quote, error)
}
