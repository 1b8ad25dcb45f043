package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SandLosT/Attendant/pkg/utils"

	"github.com/google/uuid"
)

// DefaultManualMinutes is used when a takeover does not say how long.
const DefaultManualMinutes = 120

// Service owns customers and the attendance state machine.
type Service struct {
	repo          Repository
	log           *slog.Logger
	manualMinutes int
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository, manualMinutes int, log *slog.Logger) *Service {
	if manualMinutes <= 0 {
		manualMinutes = DefaultManualMinutes
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:          repo,
		log:           log.With(slog.String("service", "attendance")),
		manualMinutes: manualMinutes,
		clock:         time.Now,
	}
}

// WithClock replaces the time source. Meant for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// NormalizePhone strips transport suffixes and formatting, keeping digits.
func NormalizePhone(raw string) (string, error) {
	p := utils.DigitsOnly(raw)
	if len(p) < 8 {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// Customer returns the customer for phone, creating it on first contact.
// A concurrent creator winning the unique key is resolved by re-reading.
func (s *Service) Customer(ctx context.Context, phone string) (Customer, error) {
	p, err := NormalizePhone(phone)
	if err != nil {
		return Customer{}, err
	}
	c, err := s.repo.FindCustomerByPhone(ctx, p)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Customer{}, err
	}

	c = Customer{ID: uuid.NewString(), Phone: p, CreatedAt: s.clock().UTC()}
	if err := s.repo.InsertCustomer(ctx, c); err != nil {
		if errors.Is(err, ErrConflict) {
			return s.repo.FindCustomerByPhone(ctx, p)
		}
		return Customer{}, err
	}
	s.log.Info("customer created", "customer_id", c.ID)
	return c, nil
}

// GetOrCreate returns the customer's attendance, opening one if absent.
func (s *Service) GetOrCreate(ctx context.Context, customerID string) (Attendance, error) {
	if customerID == "" {
		return Attendance{}, ErrInvalidArgument
	}
	a, err := s.repo.GetByCustomer(ctx, customerID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Attendance{}, err
	}

	now := s.clock().UTC()
	a = Attendance{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		State:      StateOpen,
		Mode:       ModeAuto,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			return s.repo.GetByCustomer(ctx, customerID)
		}
		return Attendance{}, err
	}
	return a, nil
}

// Lookup finds an existing customer and attendance by phone without creating either.
func (s *Service) Lookup(ctx context.Context, phone string) (Customer, Attendance, error) {
	p, err := NormalizePhone(phone)
	if err != nil {
		return Customer{}, Attendance{}, err
	}
	c, err := s.repo.FindCustomerByPhone(ctx, p)
	if err != nil {
		return Customer{}, Attendance{}, err
	}
	a, err := s.repo.GetByCustomer(ctx, c.ID)
	if err != nil {
		return Customer{}, Attendance{}, err
	}
	return c, a, nil
}

// CustomerByID is used by owner operations to reach the customer's phone.
func (s *Service) CustomerByID(ctx context.Context, id string) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// Apply moves a through ev and persists the result.
func (s *Service) Apply(ctx context.Context, a Attendance, ev Event) (Attendance, error) {
	next, err := Transition(a.State, ev)
	if err != nil {
		return a, err
	}
	prev := a.State
	a.State = next
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return a, err
	}
	s.log.Debug("transition", "attendance_id", a.ID, "event", ev, "from", prev, "to", next)
	return a, nil
}

// AttachQuote points the attendance at quoteID and applies ev in one write.
func (s *Service) AttachQuote(ctx context.Context, a Attendance, quoteID string, ev Event) (Attendance, error) {
	next, err := Transition(a.State, ev)
	if err != nil {
		return a, err
	}
	a.State = next
	a.CurrentQuoteID = quoteID
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// Reopen returns a settled conversation (FINALIZADO or ESCALADO_HUMANO) to
// StateOpen and drops the quote link.
func (s *Service) Reopen(ctx context.Context, a Attendance) (Attendance, error) {
	next, err := Transition(a.State, EventNewQuote)
	if err != nil {
		return a, err
	}
	a.State = next
	a.CurrentQuoteID = ""
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return a, err
	}
	return a, nil
}

// Takeover hands the conversation to the owner for minutes (default when <= 0).
// The state at the moment of the first takeover is kept for the release.
func (s *Service) Takeover(ctx context.Context, customerID string, minutes int, reason string) (Attendance, error) {
	a, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return Attendance{}, err
	}
	if minutes <= 0 {
		minutes = s.manualMinutes
	}
	now := s.clock().UTC()
	until := now.Add(time.Duration(minutes) * time.Minute)

	if a.Mode != ModeManual {
		a.PreviousState = a.State
	}
	a.Mode = ModeManual
	a.ManualUntil = &until
	a.ManualReason = reason
	a.UpdatedAt = now
	if err := s.repo.Update(ctx, a); err != nil {
		return Attendance{}, err
	}
	s.log.Info("manual takeover", "attendance_id", a.ID, "until", until, "reason", reason)
	return a, nil
}

// Release ends manual mode and restores the saved state,
// or AGUARDANDO_APROVACAO_DONO when none was saved.
// An attendance already in auto mode is returned unchanged.
func (s *Service) Release(ctx context.Context, customerID string) (Attendance, error) {
	a, err := s.repo.GetByCustomer(ctx, customerID)
	if err != nil {
		return Attendance{}, err
	}
	if a.Mode != ModeManual {
		s.log.Debug("release on auto attendance ignored", "attendance_id", a.ID, "state", a.State)
		return a, nil
	}
	a = restore(a)
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Attendance{}, err
	}
	s.log.Info("manual released", "attendance_id", a.ID, "state", a.State)
	return a, nil
}

// Gate expires a lapsed manual window and reports whether the bot must stay quiet.
// Expiry is only ever noticed here, on the next inbound event.
func (s *Service) Gate(ctx context.Context, a Attendance) (Attendance, bool, error) {
	if a.Mode != ModeManual {
		return a, false, nil
	}
	now := s.clock()
	if a.ManualActive(now) {
		return a, true, nil
	}
	a = restore(a)
	a.UpdatedAt = now.UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return a, false, err
	}
	s.log.Info("manual window expired", "attendance_id", a.ID, "state", a.State)
	return a, false, nil
}

// Close finishes the attendance after an owner decision, clearing manual mode.
func (s *Service) Close(ctx context.Context, customerID string, ev Event) (Attendance, error) {
	a, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return Attendance{}, err
	}
	next, err := Transition(a.State, ev)
	if err != nil {
		return Attendance{}, err
	}
	switch {
	case ev == EventOwnerClosed:
		a = clearManual(a)
	case a.Mode == ModeManual:
		// the owner's decision is what a later release must come back to
		a.PreviousState = next
	}
	a.State = next
	a.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		return Attendance{}, err
	}
	return a, nil
}

func restore(a Attendance) Attendance {
	prev := a.PreviousState
	a = clearManual(a)
	if prev != "" {
		a.State = prev
	} else {
		a.State = StateAwaitingOwner
	}
	return a
}

func clearManual(a Attendance) Attendance {
	a.Mode = ModeAuto
	a.ManualUntil = nil
	a.ManualReason = ""
	a.PreviousState = ""
	return a
}
