package quote

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	quotes map[string]Quote
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{quotes: map[string]Quote{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, q Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quotes[q.ID]; ok {
		return ErrInvalidArgument
	}
	r.quotes[q.ID] = q
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotes[id]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return q, nil
}

func (r *MemoryRepo) Update(ctx context.Context, q Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quotes[q.ID]; !ok {
		return ErrNotFound
	}
	r.quotes[q.ID] = q
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, status Status, limit int) ([]Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Quote
	for _, q := range r.quotes {
		if status == "" || q.Status == status {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) CreatedBetween(ctx context.Context, from, to time.Time) ([]Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Quote
	for _, q := range r.quotes {
		if !q.CreatedAt.Before(from) && q.CreatedAt.Before(to) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
