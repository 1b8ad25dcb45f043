package quote

import (
	"context"
	"log/slog"
	"time"

	"github.com/SandLosT/Attendant/internal/estimation"

	"github.com/google/uuid"
)

// Service owns quote persistence and status rules.
//
// Status rules:
// - approve and reject only from PENDENTE
// - manual close from PENDENTE or APROVADO
// Slot bookkeeping on the agenda side is the caller's job; this service
// only records what was held.
type Service struct {
	repo Repository
	log  *slog.Logger
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log.With(slog.String("service", "quote")), clock: time.Now}
}

// Create stores a PENDENTE quote for the photo. The estimated value is only
// kept when the estimate is quotable; otherwise the owner prices it.
func (s *Service) Create(ctx context.Context, customerID, imageID string, est estimation.Estimate) (Quote, error) {
	if customerID == "" {
		return Quote{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	q := Quote{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		ImageID:         imageID,
		MatchScore:      est.MatchScore,
		RefImageID:      est.ReferenceID,
		ThresholdPassed: est.ThresholdPassed,
		ShopCanDo:       est.ShopCanDo,
		Details:         est.Raw,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if est.Quotable() {
		q.EstimatedValue = est.Value
	}
	if err := s.repo.Insert(ctx, q); err != nil {
		return Quote{}, err
	}
	s.log.Info("quote created", "quote_id", q.ID, "customer_id", customerID, "priced", q.EstimatedValue != nil)
	return q, nil
}

func (s *Service) Get(ctx context.Context, id string) (Quote, error) {
	if id == "" {
		return Quote{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status, limit int) ([]Quote, error) {
	return s.repo.List(ctx, status, limit)
}

// CreatedBetween lists quotes created in [from, to).
func (s *Service) CreatedBetween(ctx context.Context, from, to time.Time) ([]Quote, error) {
	if !to.After(from) {
		return nil, ErrInvalidArgument
	}
	return s.repo.CreatedBetween(ctx, from, to)
}

// HoldSlot records the customer's preference and the pre-reserved unit.
func (s *Service) HoldSlot(ctx context.Context, id, date, period string) (Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	now := s.clock().UTC()
	q.PreferredDate, q.PreferredPeriod = date, period
	q.SlotDate, q.SlotPeriod = date, period
	q.SlotReservedAt = &now
	q.UpdatedAt = now
	return q, s.repo.Update(ctx, q)
}

// Prefer records a date the customer was offered, without holding it.
func (s *Service) Prefer(ctx context.Context, id, date, period string) (Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	q.PreferredDate, q.PreferredPeriod = date, period
	q.UpdatedAt = s.clock().UTC()
	return q, s.repo.Update(ctx, q)
}

// ClearSlot forgets the pre-reserved unit, keeping the stated preference.
func (s *Service) ClearSlot(ctx context.Context, id string) (Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	q.SlotDate, q.SlotPeriod = "", ""
	q.SlotReservedAt = nil
	q.UpdatedAt = s.clock().UTC()
	return q, s.repo.Update(ctx, q)
}

// Approve confirms the quote for a scheduled date.
func (s *Service) Approve(ctx context.Context, id, scheduledDate, note string) (Quote, error) {
	if scheduledDate == "" {
		return Quote{}, ErrDateRequired
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if q.Status != StatusPending {
		return Quote{}, ErrAlreadyDecided
	}
	now := s.clock().UTC()
	q.Status = StatusApproved
	q.ScheduledDate = scheduledDate
	q.ApprovedAt = &now
	if note != "" {
		q.Note = note
	}
	q.UpdatedAt = now
	if err := s.repo.Update(ctx, q); err != nil {
		return Quote{}, err
	}
	s.log.Info("quote approved", "quote_id", id, "scheduled_date", scheduledDate)
	return q, nil
}

// Reject marks the quote for in-person evaluation and drops any held slot.
func (s *Service) Reject(ctx context.Context, id, reason string) (Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if !q.Rejectable() {
		return Quote{}, ErrAlreadyDecided
	}
	if reason == "" {
		reason = DefaultRejectReason
	}
	q.Status = StatusRejected
	q.RejectReason = reason
	q.SlotDate, q.SlotPeriod = "", ""
	q.SlotReservedAt = nil
	q.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, q); err != nil {
		return Quote{}, err
	}
	s.log.Info("quote rejected", "quote_id", id, "reason", reason)
	return q, nil
}

// Close finalizes the quote by hand. Without a scheduled date the held
// slot is dropped from the record.
func (s *Service) Close(ctx context.Context, id string, in ManualClose) (Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if !q.Closable() {
		return Quote{}, ErrAlreadyDecided
	}
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}
	now := s.clock().UTC()
	q.Status = StatusManualClosed
	q.FinalValue = in.FinalValue
	q.ClosedAt = &now
	q.ClosedBy = in.ClosedBy
	q.Note = in.Note
	if in.ScheduledDate != "" {
		q.ScheduledDate = in.ScheduledDate
	} else {
		q.SlotDate, q.SlotPeriod = "", ""
		q.SlotReservedAt = nil
	}
	q.UpdatedAt = now
	if err := s.repo.Update(ctx, q); err != nil {
		return Quote{}, err
	}
	s.log.Info("quote closed manually", "quote_id", id, "closed_by", in.ClosedBy)
	return q, nil
}
