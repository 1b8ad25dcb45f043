package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SandLosT/Attendant/pkg/utils"
)

// PostgresRepo stores customers and attendances.
// customers.phone and attendances.customer_id are UNIQUE.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) FindCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	const q = `SELECT id, phone, COALESCE(name, ''), created_at FROM customers WHERE phone = $1`
	return scanCustomer(r.db.QueryRowContext(ctx, q, phone))
}

func (r *PostgresRepo) GetCustomer(ctx context.Context, id string) (Customer, error) {
	const q = `SELECT id, phone, COALESCE(name, ''), created_at FROM customers WHERE id = $1`
	return scanCustomer(r.db.QueryRowContext(ctx, q, id))
}

func scanCustomer(row *sql.Row) (Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *PostgresRepo) InsertCustomer(ctx context.Context, c Customer) error {
	const q = `INSERT INTO customers (id, phone, name, created_at) VALUES ($1, $2, NULLIF($3, ''), $4)`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.Phone, c.Name, c.CreatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

const attendanceColumns = `id, customer_id, state, mode, manual_until, COALESCE(manual_reason, ''),
COALESCE(previous_state, ''), COALESCE(current_quote_id::text, ''), created_at, updated_at`

func (r *PostgresRepo) GetByCustomer(ctx context.Context, customerID string) (Attendance, error) {
	q := `SELECT ` + attendanceColumns + ` FROM attendances WHERE customer_id = $1`
	var (
		a        Attendance
		state    string
		prev     string
		mode     string
		manualTo sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, customerID).Scan(
		&a.ID,
		&a.CustomerID,
		&state,
		&mode,
		&manualTo,
		&a.ManualReason,
		&prev,
		&a.CurrentQuoteID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attendance{}, ErrNotFound
		}
		return Attendance{}, err
	}
	if a.State, err = ParseState(state); err != nil {
		return Attendance{}, err
	}
	if prev != "" {
		if a.PreviousState, err = ParseState(prev); err != nil {
			return Attendance{}, err
		}
	}
	a.Mode = ModeAuto
	if mode == string(ModeManual) {
		a.Mode = ModeManual
	}
	if manualTo.Valid {
		t := manualTo.Time
		a.ManualUntil = &t
	}
	return a, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, a Attendance) error {
	const q = `
INSERT INTO attendances (id, customer_id, state, mode, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.CustomerID, string(a.State), string(a.Mode), a.CreatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, a Attendance) error {
	const q = `
UPDATE attendances
SET state = $2,
    mode = $3,
    manual_until = $4,
    manual_reason = NULLIF($5, ''),
    previous_state = NULLIF($6, ''),
    current_quote_id = NULLIF($7, '')::uuid,
    updated_at = $8
WHERE id = $1
`
	var until any
	if a.ManualUntil != nil {
		until = a.ManualUntil.UTC()
	}
	res, err := r.db.ExecContext(ctx, q,
		a.ID,
		string(a.State),
		string(a.Mode),
		until,
		a.ManualReason,
		string(a.PreviousState),
		a.CurrentQuoteID,
		a.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
