package attendance

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
// It enforces the same uniqueness rules as the SQL schema.
type MemoryRepo struct {
	mu          sync.Mutex
	customers   map[string]Customer   // by id
	byPhone     map[string]string     // phone -> customer id
	attendances map[string]Attendance // by customer id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		customers:   map[string]Customer{},
		byPhone:     map[string]string{},
		attendances: map[string]Attendance{},
	}
}

func (r *MemoryRepo) FindCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPhone[phone]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return r.customers[id], nil
}

func (r *MemoryRepo) GetCustomer(ctx context.Context, id string) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) InsertCustomer(ctx context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPhone[c.Phone]; ok {
		return ErrConflict
	}
	r.customers[c.ID] = c
	r.byPhone[c.Phone] = c.ID
	return nil
}

func (r *MemoryRepo) GetByCustomer(ctx context.Context, customerID string) (Attendance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attendances[customerID]
	if !ok {
		return Attendance{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, a Attendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attendances[a.CustomerID]; ok {
		return ErrConflict
	}
	r.attendances[a.CustomerID] = a
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Attendance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.attendances[a.CustomerID]
	if !ok || cur.ID != a.ID {
		return ErrNotFound
	}
	r.attendances[a.CustomerID] = a
	return nil
}
