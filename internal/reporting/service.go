package reporting

import (
	"context"
	"errors"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/quote"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// QuoteSource lists quotes by creation time.
type QuoteSource interface {
	CreatedBetween(ctx context.Context, from, to time.Time) ([]quote.Quote, error)
}

// SlotSource lists agenda slots with their week status.
type SlotSource interface {
	ListAvailability(ctx context.Context, from, to string) ([]agenda.Availability, error)
}

// Service builds read-only summaries. It never writes.
type Service struct {
	quotes QuoteSource
	slots  SlotSource
	loc    *time.Location
}

func NewService(quotes QuoteSource, slots SlotSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{quotes: quotes, slots: slots, loc: loc}
}

func (s *Service) Summary(ctx context.Context, r DateRange) (Summary, error) {
	q, err := s.QuotesSummary(ctx, r)
	if err != nil {
		return Summary{}, err
	}
	a, err := s.AgendaOccupancy(ctx, r)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Quotes: q, Agenda: a}, nil
}

func (s *Service) QuotesSummary(ctx context.Context, r DateRange) (QuotesSummary, error) {
	from, to, err := s.bounds(r)
	if err != nil {
		return QuotesSummary{}, err
	}
	if s.quotes == nil {
		return QuotesSummary{}, errors.New("reporting: quote source not configured")
	}
	rows, err := s.quotes.CreatedBetween(ctx, from, to)
	if err != nil {
		return QuotesSummary{}, err
	}

	out := QuotesSummary{Range: r}
	for _, q := range rows {
		out.Total++
		if q.EstimatedValue != nil {
			out.AutoPriced++
			out.EstimatedTotal += *q.EstimatedValue
		} else {
			out.NeedReview++
		}
		if q.HoldsSlot() {
			out.HeldSlots++
		}
		switch q.Status {
		case quote.StatusPending:
			out.Pending++
		case quote.StatusApproved:
			out.Approved++
			out.ClosedTotal += closedValue(q)
		case quote.StatusRejected:
			out.Rejected++
		case quote.StatusManualClosed:
			out.ManualClosed++
			out.ClosedTotal += closedValue(q)
		}
	}
	if out.Total > 0 {
		out.ConversionRate = float64(out.Approved+out.ManualClosed) / float64(out.Total)
	}
	return out, nil
}

func (s *Service) AgendaOccupancy(ctx context.Context, r DateRange) (AgendaOccupancy, error) {
	if _, _, err := s.bounds(r); err != nil {
		return AgendaOccupancy{}, err
	}
	if s.slots == nil {
		return AgendaOccupancy{}, errors.New("reporting: slot source not configured")
	}
	rows, err := s.slots.ListAvailability(ctx, r.From, r.To)
	if err != nil {
		return AgendaOccupancy{}, err
	}

	out := AgendaOccupancy{Range: r}
	for _, a := range rows {
		out.Slots++
		out.Reserved += a.Reserved
		if a.Blocked {
			out.BlockedSlots++
			continue
		}
		out.Capacity += a.Capacity
		if a.WeekFull {
			out.FullWeekSlots++
		}
	}
	if out.Capacity > 0 {
		out.OccupancyRate = float64(out.Reserved) / float64(out.Capacity)
	}
	return out, nil
}

// bounds turns the inclusive date range into [from 00:00, to+1 00:00) in the
// shop's timezone.
func (s *Service) bounds(r DateRange) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation("2006-01-02", r.From, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidRequest
	}
	to, err := time.ParseInLocation("2006-01-02", r.To, s.loc)
	if err != nil || to.Before(from) {
		return time.Time{}, time.Time{}, ErrInvalidRequest
	}
	return from, to.AddDate(0, 0, 1), nil
}

func closedValue(q quote.Quote) float64 {
	switch {
	case q.FinalValue != nil:
		return *q.FinalValue
	case q.EstimatedValue != nil:
		return *q.EstimatedValue
	default:
		return 0
	}
}
