package media

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// Repository records image metadata.
type Repository interface {
	Insert(ctx context.Context, img Image) error
	FindByHash(ctx context.Context, customerID, sha string) (Image, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, img Image) error {
	const q = `
INSERT INTO images (id, customer_id, object_key, original_name, mime, size_bytes, sha256, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
`
	_, err := r.db.ExecContext(ctx, q,
		img.ID, img.CustomerID, img.ObjectKey, img.OriginalName, img.MIME, img.Size, img.SHA256, img.CreatedAt)
	return err
}

func (r *PostgresRepo) FindByHash(ctx context.Context, customerID, sha string) (Image, error) {
	const q = `
SELECT id, customer_id, object_key, COALESCE(original_name, ''), mime, size_bytes, sha256, created_at
FROM images
WHERE customer_id = $1 AND sha256 = $2
ORDER BY created_at
LIMIT 1
`
	var img Image
	err := r.db.QueryRowContext(ctx, q, customerID, sha).Scan(
		&img.ID, &img.CustomerID, &img.ObjectKey, &img.OriginalName, &img.MIME, &img.Size, &img.SHA256, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Image{}, ErrNotFound
		}
		return Image{}, err
	}
	return img, nil
}

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	images []Image
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, img Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, img)
	return nil
}

func (r *MemoryRepo) FindByHash(ctx context.Context, customerID, sha string) (Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, img := range r.images {
		if img.CustomerID == customerID && img.SHA256 == sha {
			return img, nil
		}
	}
	return Image{}, ErrNotFound
}

func (r *MemoryRepo) Images() []Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Image, len(r.images))
	copy(out, r.images)
	return out
}
