package attendance

import "context"

// Repository persists customers and their attendance rows.
// Insert methods return ErrConflict when the natural key already exists.
type Repository interface {
	FindCustomerByPhone(ctx context.Context, phone string) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	InsertCustomer(ctx context.Context, c Customer) error

	GetByCustomer(ctx context.Context, customerID string) (Attendance, error)
	Insert(ctx context.Context, a Attendance) error
	Update(ctx context.Context, a Attendance) error
}
