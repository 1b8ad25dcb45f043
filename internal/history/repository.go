package history

import (
	"context"
	"database/sql"
	"sync"
)

// Repository is append-only. There is no Update/Delete.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, customerID string, limit int) ([]Entry, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO message_history (id, customer_id, direction, body, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.CustomerID, string(e.Direction), e.Body, e.CreatedAt)
	return err
}

// Recent returns up to limit entries, oldest first.
func (r *PostgresRepo) Recent(ctx context.Context, customerID string, limit int) ([]Entry, error) {
	const q = `
SELECT id, customer_id, direction, body, created_at FROM (
	SELECT id, customer_id, direction, body, created_at
	FROM message_history
	WHERE customer_id = $1
	ORDER BY created_at DESC
	LIMIT $2
) recent
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var dir string
		if err := rows.Scan(&e.ID, &e.CustomerID, &dir, &e.Body, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Direction = Direction(dir)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryRepo is a simple in-memory append-only repository useful for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRepo) Recent(ctx context.Context, customerID string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Entry
	for _, e := range r.entries {
		if e.CustomerID == customerID {
			matched = append(matched, e)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	out := make([]Entry, len(matched))
	copy(out, matched)
	return out, nil
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
