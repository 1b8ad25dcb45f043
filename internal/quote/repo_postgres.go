package quote

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const quoteColumns = `id, customer_id, COALESCE(image_id::text, ''), estimated_value, match_score, ref_image_id,
threshold_passed, shop_can_do, details, status,
COALESCE(preferred_date::text, ''), COALESCE(preferred_period, ''),
COALESCE(slot_date::text, ''), COALESCE(slot_period, ''), slot_reserved_at,
COALESCE(scheduled_date::text, ''), approved_at, COALESCE(reject_reason, ''),
final_value, closed_at, COALESCE(closed_by, ''), COALESCE(note, ''),
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (Quote, error) {
	var (
		q                                    Quote
		estimated, score, final              sql.NullFloat64
		ref                                  sql.NullInt64
		details                              []byte
		status                               string
		slotReservedAt, approvedAt, closedAt sql.NullTime
	)
	err := row.Scan(
		&q.ID, &q.CustomerID, &q.ImageID, &estimated, &score, &ref,
		&q.ThresholdPassed, &q.ShopCanDo, &details, &status,
		&q.PreferredDate, &q.PreferredPeriod,
		&q.SlotDate, &q.SlotPeriod, &slotReservedAt,
		&q.ScheduledDate, &approvedAt, &q.RejectReason,
		&final, &closedAt, &q.ClosedBy, &q.Note,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, err
	}
	q.Status = Status(status)
	q.EstimatedValue = nullFloat(estimated)
	q.MatchScore = nullFloat(score)
	q.FinalValue = nullFloat(final)
	if ref.Valid {
		v := ref.Int64
		q.RefImageID = &v
	}
	if len(details) > 0 {
		q.Details = details
	}
	q.SlotReservedAt = nullTime(slotReservedAt)
	q.ApprovedAt = nullTime(approvedAt)
	q.ClosedAt = nullTime(closedAt)
	return q, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, q Quote) error {
	const stmt = `
INSERT INTO quotes (
  id, customer_id, image_id, estimated_value, match_score, ref_image_id,
  threshold_passed, shop_can_do, details, status, created_at, updated_at
) VALUES (
  $1, $2, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9, $10, $11, $11
)
`
	_, err := r.db.ExecContext(ctx, stmt,
		q.ID,
		q.CustomerID,
		q.ImageID,
		q.EstimatedValue,
		q.MatchScore,
		q.RefImageID,
		q.ThresholdPassed,
		q.ShopCanDo,
		detailsArg(q.Details),
		string(q.Status),
		q.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Quote, error) {
	q := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	return scanQuote(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) Update(ctx context.Context, q Quote) error {
	const stmt = `
UPDATE quotes SET
  status = $2,
  preferred_date = NULLIF($3, '')::date,
  preferred_period = NULLIF($4, ''),
  slot_date = NULLIF($5, '')::date,
  slot_period = NULLIF($6, ''),
  slot_reserved_at = $7,
  scheduled_date = NULLIF($8, '')::date,
  approved_at = $9,
  reject_reason = NULLIF($10, ''),
  final_value = $11,
  closed_at = $12,
  closed_by = NULLIF($13, ''),
  note = NULLIF($14, ''),
  updated_at = $15
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, stmt,
		q.ID,
		string(q.Status),
		q.PreferredDate,
		q.PreferredPeriod,
		q.SlotDate,
		q.SlotPeriod,
		q.SlotReservedAt,
		q.ScheduledDate,
		q.ApprovedAt,
		q.RejectReason,
		q.FinalValue,
		q.ClosedAt,
		q.ClosedBy,
		q.Note,
		q.UpdatedAt,
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

func (r *PostgresRepo) List(ctx context.Context, status Status, limit int) ([]Quote, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + quoteColumns + ` FROM quotes
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		item, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CreatedBetween(ctx context.Context, from, to time.Time) ([]Quote, error) {
	q := `SELECT ` + quoteColumns + ` FROM quotes
WHERE created_at >= $1 AND created_at < $2
ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		item, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func detailsArg(d []byte) any {
	if len(d) == 0 {
		return []byte("{}")
	}
	return []byte(d)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
