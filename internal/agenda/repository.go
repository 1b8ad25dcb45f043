package agenda

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/SandLosT/Attendant/pkg/utils"

	"github.com/google/uuid"
)

// NOTE: This repository assumes the agenda_slots table from db/migrations:
// UNIQUE (slot_date, period) and CHECK (reserved BETWEEN 0 AND capacity).

// PostgresStore is the SQL-backed Store.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const slotColumns = `id, slot_date, period, capacity, reserved, blocked, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (Slot, error) {
	var s Slot
	var day time.Time
	if err := row.Scan(
		&s.ID,
		&day,
		&s.Period,
		&s.Capacity,
		&s.Reserved,
		&s.Blocked,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Slot{}, ErrNotFound
		}
		return Slot{}, err
	}
	s.Date = day.Format(dateLayout)
	return s, nil
}

func (p *PostgresStore) EnsureSlot(ctx context.Context, date string, period Period, defaultCapacity int) (Slot, bool, error) {
	// Concurrent first touches race on the unique key; the loser inserts nothing.
	const ins = `
INSERT INTO agenda_slots (id, slot_date, period, capacity, reserved, blocked, created_at, updated_at)
VALUES ($1, $2::date, $3, $4, 0, false, $5, $5)
ON CONFLICT (slot_date, period) DO NOTHING
`
	now := p.clock().UTC()
	res, err := p.db.ExecContext(ctx, ins, uuid.NewString(), date, string(period), defaultCapacity, now)
	if err != nil {
		return Slot{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Slot{}, false, err
	}
	s, err := p.GetSlot(ctx, date, period)
	if err != nil {
		return Slot{}, false, err
	}
	return s, n > 0, nil
}

func (p *PostgresStore) GetSlot(ctx context.Context, date string, period Period) (Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM agenda_slots WHERE slot_date = $1::date AND period = $2`
	return scanSlot(p.db.QueryRowContext(ctx, q, date, string(period)))
}

func (p *PostgresStore) ReservedInWeek(ctx context.Context, week Week) (int, error) {
	const q = `
SELECT COALESCE(SUM(reserved), 0)
FROM agenda_slots
WHERE slot_date BETWEEN $1::date AND $2::date
`
	var total int
	if err := p.db.QueryRowContext(ctx, q, week.Start, week.End).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (p *PostgresStore) Reserve(ctx context.Context, date string, period Period, week Week, weeklyLimit int) (ReserveResult, error) {
	var out ReserveResult
	now := p.clock().UTC()

	err := utils.WithRetryTx(ctx, p.db, &sql.TxOptions{}, 3, func(ctx context.Context, tx *sql.Tx) error {
		// Locking every row of the week serializes reservations that would
		// otherwise each see the week below its limit.
		total, err := lockWeek(ctx, tx, week)
		if err != nil {
			return err
		}
		if total >= weeklyLimit {
			out = ReserveResult{Reason: ReasonWeekFull}
			return nil
		}

		s, err := lockSlot(ctx, tx, date, period)
		if errors.Is(err, ErrNotFound) {
			out = ReserveResult{Reason: ReasonUnavailable}
			return nil
		}
		if err != nil {
			return err
		}
		if !s.Open() {
			out = ReserveResult{Reason: ReasonUnavailable}
			return nil
		}

		if err := incrementReserved(ctx, tx, s.ID, now); err != nil {
			return err
		}
		out = ReserveResult{OK: true, Date: date, Period: period}
		return nil
	})
	if err != nil {
		return ReserveResult{}, err
	}
	return out, nil
}

func lockWeek(ctx context.Context, tx *sql.Tx, week Week) (int, error) {
	// Aggregates cannot take FOR UPDATE, so rows are locked in a stable order and summed here.
	const q = `
SELECT reserved
FROM agenda_slots
WHERE slot_date BETWEEN $1::date AND $2::date
ORDER BY slot_date, period
FOR UPDATE
`
	rows, err := tx.QueryContext(ctx, q, week.Start, week.End)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	total := 0
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
		total += n
	}
	return total, rows.Err()
}

func lockSlot(ctx context.Context, tx *sql.Tx, date string, period Period) (Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM agenda_slots WHERE slot_date = $1::date AND period = $2 FOR UPDATE`
	return scanSlot(tx.QueryRowContext(ctx, q, date, string(period)))
}

func incrementReserved(ctx context.Context, tx *sql.Tx, id string, now time.Time) error {
	const q = `
UPDATE agenda_slots
SET reserved = reserved + 1, updated_at = $2
WHERE id = $1 AND reserved < capacity AND NOT blocked
`
	res, err := tx.ExecContext(ctx, q, id, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("agenda: slot changed under lock")
	}
	return nil
}

func (p *PostgresStore) Release(ctx context.Context, date string, period Period) (bool, error) {
	const q = `
UPDATE agenda_slots
SET reserved = reserved - 1, updated_at = $3
WHERE slot_date = $1::date AND period = $2 AND NOT blocked AND reserved > 0
`
	res, err := p.db.ExecContext(ctx, q, date, string(period), p.clock().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *PostgresStore) SetBlocked(ctx context.Context, date string, period Period, blocked bool) (bool, error) {
	const q = `
UPDATE agenda_slots
SET blocked = $3, updated_at = $4
WHERE slot_date = $1::date AND period = $2
`
	res, err := p.db.ExecContext(ctx, q, date, string(period), blocked, p.clock().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *PostgresStore) ListBetween(ctx context.Context, from, to string) ([]Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM agenda_slots
WHERE slot_date BETWEEN $1::date AND $2::date
ORDER BY slot_date, period`
	rows, err := p.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
