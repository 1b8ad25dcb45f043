package agenda

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config carries the scheduling knobs.
type Config struct {
	WeeklyLimit     int
	LookaheadDays   int
	DefaultCapacity int
	GenerateDays    int
	Location        *time.Location
}

func (c Config) withDefaults() Config {
	out := c
	if out.WeeklyLimit <= 0 {
		out.WeeklyLimit = 5
	}
	if out.LookaheadDays < 0 {
		out.LookaheadDays = 0
	} else if out.LookaheadDays == 0 {
		out.LookaheadDays = 30
	}
	if out.DefaultCapacity <= 0 {
		out.DefaultCapacity = 3
	}
	if out.GenerateDays <= 0 {
		out.GenerateDays = 30
	}
	if out.Location == nil {
		out.Location = time.UTC
	}
	return out
}

// Service is the scheduling engine on top of a Store.
//
// Booking invariants:
// - a slot never holds more reservations than its capacity
// - a week never holds more than WeeklyLimit reservations
// - blocked slots accept no reservation and no release
type Service struct {
	store Store
	cfg   Config
	log   *slog.Logger
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: store,
		cfg:   cfg.withDefaults(),
		log:   log.With(slog.String("service", "agenda")),
		clock: time.Now,
	}
}

// WithClock replaces the time source. Meant for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) now() time.Time {
	return s.clock().In(s.cfg.Location)
}

// Today is the current calendar date in the shop's timezone.
func (s *Service) Today() string {
	return Today(s.now())
}

// CanonicalDay normalizes a date typed by a person.
func (s *Service) CanonicalDay(date string) (string, bool) {
	return CanonicalDate(date, s.now())
}

// Canonical normalizes a (date, period) pair as typed by a person.
func (s *Service) Canonical(date, period string) (string, Period, bool) {
	d, ok := CanonicalDate(date, s.now())
	if !ok {
		return "", "", false
	}
	p, ok := NormalizePeriod(period)
	if !ok {
		return "", "", false
	}
	return d, p, true
}

// EnsureSlot is an idempotent get-or-create with the default capacity.
func (s *Service) EnsureSlot(ctx context.Context, date, period string) (Slot, bool, error) {
	d, p, ok := s.Canonical(date, period)
	if !ok {
		return Slot{}, false, ErrInvalidArgument
	}
	return s.store.EnsureSlot(ctx, d, p, s.cfg.DefaultCapacity)
}

// WeekFull reports whether the week containing date reached the weekly limit.
func (s *Service) WeekFull(ctx context.Context, date string) (bool, error) {
	week, err := WeekOf(date)
	if err != nil {
		return false, err
	}
	total, err := s.store.ReservedInWeek(ctx, week)
	if err != nil {
		return false, err
	}
	return total >= s.cfg.WeeklyLimit, nil
}

// Extract reads a date and period out of a customer message, relative to today.
func (s *Service) Extract(text string) (string, Period) {
	return ExtractDateAndPeriod(text, s.now())
}

// PreReserve tentatively takes one unit of a slot.
// Unparseable input is reported as unavailable rather than as an error.
func (s *Service) PreReserve(ctx context.Context, date, period string) (ReserveResult, error) {
	d, p, ok := s.Canonical(date, period)
	if !ok {
		return ReserveResult{Reason: ReasonUnavailable}, nil
	}
	if _, _, err := s.store.EnsureSlot(ctx, d, p, s.cfg.DefaultCapacity); err != nil {
		return ReserveResult{}, err
	}

	full, err := s.WeekFull(ctx, d)
	if err != nil {
		return ReserveResult{}, err
	}
	if full {
		return ReserveResult{Reason: ReasonWeekFull, Date: d, Period: p}, nil
	}

	week, _ := WeekOf(d)
	res, err := s.store.Reserve(ctx, d, p, week, s.cfg.WeeklyLimit)
	if err != nil {
		return ReserveResult{}, err
	}
	res.Date, res.Period = d, p
	s.log.Debug("pre-reserve", "date", d, "period", p, "ok", res.OK, "reason", res.Reason)
	return res, nil
}

// Release gives back one unit. It is a no-op on blocked or empty slots.
func (s *Service) Release(ctx context.Context, date, period string) (bool, error) {
	d, p, ok := s.Canonical(date, period)
	if !ok {
		return false, nil
	}
	released, err := s.store.Release(ctx, d, p)
	if err != nil {
		return false, err
	}
	s.log.Debug("release", "date", d, "period", p, "released", released)
	return released, nil
}

// FindNextSlot walks forward day by day from from, skipping full weeks,
// and returns the first open slot. The preferred period is tried first.
// A nil candidate means nothing is free within the lookahead window.
func (s *Service) FindNextSlot(ctx context.Context, from, preferred string) (*Candidate, error) {
	start, ok := CanonicalDate(from, s.now())
	if !ok {
		return nil, ErrInvalidArgument
	}
	order := []Period{PeriodMorning, PeriodAfternoon}
	if p, ok := NormalizePeriod(preferred); ok {
		order = []Period{p, p.Other()}
	}

	day := start
	for i := 0; i < s.cfg.LookaheadDays; i++ {
		full, err := s.WeekFull(ctx, day)
		if err != nil {
			return nil, err
		}
		if !full {
			for _, p := range order {
				slot, _, err := s.store.EnsureSlot(ctx, day, p, s.cfg.DefaultCapacity)
				if err != nil {
					return nil, err
				}
				if slot.Open() {
					return &Candidate{Date: day, Period: p}, nil
				}
			}
		}
		day, _ = AddDays(day, 1)
	}
	return nil, nil
}

// SetBlocked creates the slot if needed and flips its blocked flag.
func (s *Service) SetBlocked(ctx context.Context, date, period string, blocked bool) (bool, error) {
	d, p, ok := s.Canonical(date, period)
	if !ok {
		return false, ErrInvalidArgument
	}
	if _, _, err := s.store.EnsureSlot(ctx, d, p, s.cfg.DefaultCapacity); err != nil {
		return false, err
	}
	changed, err := s.store.SetBlocked(ctx, d, p, blocked)
	if err != nil {
		return false, err
	}
	s.log.Info("slot blocked flag set", "date", d, "period", p, "blocked", blocked)
	return changed, nil
}

// Confirm reports whether a held slot still exists and is not blocked.
func (s *Service) Confirm(ctx context.Context, date, period string) (bool, error) {
	d, p, ok := s.Canonical(date, period)
	if !ok {
		return false, nil
	}
	slot, err := s.store.GetSlot(ctx, d, p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !slot.Blocked, nil
}

// ListAvailability returns every known slot between from and to with its
// free count and whether its week is already full.
func (s *Service) ListAvailability(ctx context.Context, from, to string) ([]Availability, error) {
	now := s.now()
	f, ok := CanonicalDate(from, now)
	if !ok {
		return nil, ErrInvalidArgument
	}
	t, ok := CanonicalDate(to, now)
	if !ok || t < f {
		return nil, ErrInvalidArgument
	}
	slots, err := s.store.ListBetween(ctx, f, t)
	if err != nil {
		return nil, err
	}

	fullByWeek := map[string]bool{}
	out := make([]Availability, 0, len(slots))
	for _, slot := range slots {
		week, err := WeekOf(slot.Date)
		if err != nil {
			return nil, err
		}
		full, seen := fullByWeek[week.Start]
		if !seen {
			total, err := s.store.ReservedInWeek(ctx, week)
			if err != nil {
				return nil, err
			}
			full = total >= s.cfg.WeeklyLimit
			fullByWeek[week.Start] = full
		}
		out = append(out, Availability{Slot: slot, Free: slot.Free(), WeekFull: full})
	}
	return out, nil
}

// OpenSlots lists the slots a customer could still book from today through
// days-1 ahead: unblocked, with room, in a week below the weekly limit.
func (s *Service) OpenSlots(ctx context.Context, days int) ([]Slot, error) {
	if days < 1 {
		days = 1
	}
	from := s.Today()
	to, _ := AddDays(from, days-1)
	avail, err := s.ListAvailability(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := []Slot{}
	for _, a := range avail {
		if a.Open() && !a.WeekFull {
			out = append(out, a.Slot)
		}
	}
	return out, nil
}

// GenerateSlots makes sure both periods exist for days consecutive dates
// starting at from (today when empty). Zero days or capacity use the defaults.
func (s *Service) GenerateSlots(ctx context.Context, from string, days, capacity int) (GenerateResult, error) {
	if days <= 0 {
		days = s.cfg.GenerateDays
	}
	if capacity <= 0 {
		capacity = s.cfg.DefaultCapacity
	}
	start := s.Today()
	if from != "" {
		d, ok := CanonicalDate(from, s.now())
		if !ok {
			return GenerateResult{}, ErrInvalidArgument
		}
		start = d
	}

	var out GenerateResult
	day := start
	for i := 0; i < days; i++ {
		for _, p := range []Period{PeriodMorning, PeriodAfternoon} {
			_, created, err := s.store.EnsureSlot(ctx, day, p, capacity)
			if err != nil {
				return out, err
			}
			if created {
				out.Created++
			} else {
				out.Existing++
			}
		}
		day, _ = AddDays(day, 1)
	}
	s.log.Info("slots generated", "from", start, "days", days, "created", out.Created, "existing", out.Existing)
	return out, nil
}
