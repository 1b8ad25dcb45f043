package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/history"
	"github.com/SandLosT/Attendant/internal/quote"
)

const (
	approvedNotice       = "Perfeito! Agendamos para %s. Qualquer coisa estamos à disposição."
	rejectedNotice       = "Para esse caso, precisamos que um profissional avalie melhor presencialmente. Vou te retornar em seguida."
	closedNotice         = "Seu atendimento foi finalizado por aqui. Obrigado pela confiança!"
	closedWithDateNotice = "Tudo certo! Seu atendimento foi finalizado com agendamento para %s. Obrigado pela confiança!"
)

// Decision is the outcome of an owner operation on a quote.
type Decision struct {
	Quote      quote.Quote           `json:"quote"`
	Attendance attendance.Attendance `json:"attendance"`
}

// QuoteDetail is a quote as the owner panel shows it.
type QuoteDetail struct {
	Quote      quote.Quote           `json:"quote"`
	Customer   attendance.Customer   `json:"customer"`
	Attendance attendance.Attendance `json:"attendance"`
}

// Approve confirms a pending quote for a date and closes the attendance.
// A slot held for another date is given back.
func (e *Engine) Approve(ctx context.Context, quoteID, date, note string) (Decision, error) {
	if date == "" {
		return Decision{}, quote.ErrDateRequired
	}
	day, ok := e.agenda.CanonicalDay(date)
	if !ok {
		return Decision{}, fmt.Errorf("%w: scheduled_date", quote.ErrInvalidArgument)
	}

	cust, unlock, err := e.lockQuoteCustomer(ctx, quoteID)
	if err != nil {
		return Decision{}, err
	}
	defer unlock()

	q, err := e.quotes.Approve(ctx, quoteID, day, note)
	if err != nil {
		return Decision{}, err
	}
	if q.HoldsSlot() {
		if q.SlotDate != day {
			if err := e.dropHold(ctx, q); err != nil {
				return Decision{}, err
			}
			q.SlotDate, q.SlotPeriod, q.SlotReservedAt = "", "", nil
		} else if ok, err := e.agenda.Confirm(ctx, q.SlotDate, q.SlotPeriod); err == nil && !ok {
			e.log.Warn("approved on a blocked or missing slot", "quote_id", q.ID, "date", q.SlotDate, "period", q.SlotPeriod)
		}
	}

	att, err := e.settle(ctx, q, attendance.EventOwnerApproved)
	if err != nil {
		return Decision{}, err
	}
	e.deliver(ctx, cust, fmt.Sprintf(approvedNotice, agenda.FormatBR(day)))
	return Decision{Quote: q, Attendance: att}, nil
}

// Reject sends a pending quote to in-person evaluation, releasing its slot.
func (e *Engine) Reject(ctx context.Context, quoteID, reason string) (Decision, error) {
	cust, unlock, err := e.lockQuoteCustomer(ctx, quoteID)
	if err != nil {
		return Decision{}, err
	}
	defer unlock()

	before, err := e.quotes.Get(ctx, quoteID)
	if err != nil {
		return Decision{}, err
	}
	if !before.Rejectable() {
		return Decision{}, quote.ErrAlreadyDecided
	}
	// the unit goes back before the quote forgets it, so a failed release can be retried
	if before.HoldsSlot() {
		if _, err := e.agenda.Release(ctx, before.SlotDate, before.SlotPeriod); err != nil {
			return Decision{}, fmt.Errorf("release slot: %w", err)
		}
	}
	q, err := e.quotes.Reject(ctx, quoteID, reason)
	if err != nil {
		return Decision{}, err
	}

	att, err := e.settle(ctx, q, attendance.EventOwnerRejected)
	if err != nil {
		return Decision{}, err
	}
	e.deliver(ctx, cust, rejectedNotice)
	return Decision{Quote: q, Attendance: att}, nil
}

// ManualClose finalizes a quote by hand. Without a scheduled date the held
// slot is released. Manual mode is cleared.
func (e *Engine) ManualClose(ctx context.Context, quoteID string, in quote.ManualClose) (Decision, error) {
	if in.ScheduledDate != "" {
		day, ok := e.agenda.CanonicalDay(in.ScheduledDate)
		if !ok {
			return Decision{}, fmt.Errorf("%w: scheduled_date", quote.ErrInvalidArgument)
		}
		in.ScheduledDate = day
	}

	cust, unlock, err := e.lockQuoteCustomer(ctx, quoteID)
	if err != nil {
		return Decision{}, err
	}
	defer unlock()

	before, err := e.quotes.Get(ctx, quoteID)
	if err != nil {
		return Decision{}, err
	}
	if !before.Closable() {
		return Decision{}, quote.ErrAlreadyDecided
	}
	if err := in.Validate(); err != nil {
		return Decision{}, err
	}
	if before.HoldsSlot() && in.ScheduledDate == "" {
		if _, err := e.agenda.Release(ctx, before.SlotDate, before.SlotPeriod); err != nil {
			return Decision{}, fmt.Errorf("release slot: %w", err)
		}
	}
	q, err := e.quotes.Close(ctx, quoteID, in)
	if err != nil {
		return Decision{}, err
	}

	att, err := e.settle(ctx, q, attendance.EventOwnerClosed)
	if err != nil {
		return Decision{}, err
	}
	if in.ScheduledDate != "" {
		e.deliver(ctx, cust, fmt.Sprintf(closedWithDateNotice, agenda.FormatBR(in.ScheduledDate)))
	} else {
		e.deliver(ctx, cust, closedNotice)
	}
	return Decision{Quote: q, Attendance: att}, nil
}

// Takeover hands the conversation with phone to the owner.
func (e *Engine) Takeover(ctx context.Context, phone string, minutes int, reason string) (attendance.Attendance, error) {
	cust, unlock, err := e.lockPhone(ctx, phone)
	if err != nil {
		return attendance.Attendance{}, err
	}
	defer unlock()
	return e.attendance.Takeover(ctx, cust.ID, minutes, reason)
}

// ReleaseManual gives the conversation with phone back to the bot.
func (e *Engine) ReleaseManual(ctx context.Context, phone string) (attendance.Attendance, error) {
	cust, unlock, err := e.lockPhone(ctx, phone)
	if err != nil {
		return attendance.Attendance{}, err
	}
	defer unlock()
	return e.attendance.Release(ctx, cust.ID)
}

// ListQuotes returns quotes, newest first, optionally filtered by status.
func (e *Engine) ListQuotes(ctx context.Context, status string, limit int) ([]quote.Quote, error) {
	var st quote.Status
	if status != "" {
		var err error
		if st, err = quote.ParseStatus(status); err != nil {
			return nil, err
		}
	}
	return e.quotes.List(ctx, st, limit)
}

func (e *Engine) GetQuote(ctx context.Context, id string) (QuoteDetail, error) {
	q, err := e.quotes.Get(ctx, id)
	if err != nil {
		return QuoteDetail{}, err
	}
	cust, err := e.attendance.CustomerByID(ctx, q.CustomerID)
	if err != nil {
		return QuoteDetail{}, fmt.Errorf("customer: %w", err)
	}
	att, err := e.attendance.GetOrCreate(ctx, q.CustomerID)
	if err != nil {
		return QuoteDetail{}, fmt.Errorf("attendance: %w", err)
	}
	return QuoteDetail{Quote: q, Customer: cust, Attendance: att}, nil
}

// Conversation returns the latest journal entries with phone, oldest first.
func (e *Engine) Conversation(ctx context.Context, phone string, limit int) ([]history.Entry, error) {
	p, err := attendance.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	cust, _, err := e.attendance.Lookup(ctx, p)
	if err != nil {
		return nil, err
	}
	return e.history.Recent(ctx, cust.ID, limit)
}

// settle moves the attendance after an owner decision. A decision on an
// older quote leaves a newer conversation alone.
func (e *Engine) settle(ctx context.Context, q quote.Quote, ev attendance.Event) (attendance.Attendance, error) {
	att, err := e.attendance.GetOrCreate(ctx, q.CustomerID)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if att.CurrentQuoteID != "" && att.CurrentQuoteID != q.ID {
		e.log.Info("decision on a superseded quote", "quote_id", q.ID, "current_quote_id", att.CurrentQuoteID)
		return att, nil
	}
	return e.attendance.Close(ctx, q.CustomerID, ev)
}

func (e *Engine) lockQuoteCustomer(ctx context.Context, quoteID string) (attendance.Customer, func(), error) {
	q, err := e.quotes.Get(ctx, quoteID)
	if err != nil {
		return attendance.Customer{}, nil, err
	}
	cust, err := e.attendance.CustomerByID(ctx, q.CustomerID)
	if err != nil {
		return attendance.Customer{}, nil, fmt.Errorf("customer: %w", err)
	}
	return cust, e.locks.Lock(cust.Phone), nil
}

func (e *Engine) lockPhone(ctx context.Context, phone string) (attendance.Customer, func(), error) {
	p, err := attendance.NormalizePhone(phone)
	if err != nil {
		return attendance.Customer{}, nil, err
	}
	unlock := e.locks.Lock(p)
	cust, _, err := e.attendance.Lookup(ctx, p)
	if err != nil {
		unlock()
		if errors.Is(err, attendance.ErrNotFound) {
			return attendance.Customer{}, nil, err
		}
		return attendance.Customer{}, nil, fmt.Errorf("lookup: %w", err)
	}
	return cust, unlock, nil
}
