package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/quote"
	"github.com/SandLosT/Attendant/internal/reply"
)

// onDateText handles AGUARDANDO_DATA: cancel, pick a date, or be asked again.
func (e *Engine) onDateText(ctx context.Context, c *conversation, intent attendance.Intent) error {
	q, err := e.quotes.Get(ctx, c.att.CurrentQuoteID)
	if errors.Is(err, quote.ErrNotFound) {
		// nothing to schedule; start over
		if c.att, err = e.attendance.Apply(ctx, c.att, attendance.EventCancelled); err != nil {
			return err
		}
		return e.say(ctx, c, reply.IntentAskPhoto, nil)
	}
	if err != nil {
		return fmt.Errorf("load quote: %w", err)
	}

	if intent == attendance.IntentCancel {
		if err := e.dropHold(ctx, q); err != nil {
			return err
		}
		if c.att, err = e.attendance.Apply(ctx, c.att, attendance.EventCancelled); err != nil {
			return err
		}
		return e.say(ctx, c, reply.IntentCancelled, nil)
	}

	date, period := e.agenda.Extract(c.text)
	if date == "" && q.PreferredDate != "" && !q.HoldsSlot() && attendance.Affirmative(c.text) {
		date, period = q.PreferredDate, agenda.Period(q.PreferredPeriod)
	}
	if date == "" {
		return e.say(ctx, c, reply.IntentAskDate, nil)
	}

	today := e.agenda.Today()
	if date < today {
		return e.offerAlternative(ctx, c, q, today, period, agenda.ReasonUnavailable)
	}

	if q.HoldsSlot() {
		if q.SlotDate == date && (period == "" || string(period) == q.SlotPeriod) {
			return e.confirmHold(ctx, c, q.SlotDate, agenda.Period(q.SlotPeriod))
		}
		if err := e.dropHold(ctx, q); err != nil {
			return err
		}
	}

	res, err := e.reserve(ctx, date, period)
	if err != nil {
		return fmt.Errorf("pre-reserve: %w", err)
	}
	if !res.OK {
		return e.offerAlternative(ctx, c, q, date, period, res.Reason)
	}
	if _, err := e.quotes.HoldSlot(ctx, q.ID, res.Date, string(res.Period)); err != nil {
		// do not leak the unit we just took
		if _, rerr := e.agenda.Release(ctx, res.Date, string(res.Period)); rerr != nil {
			e.log.Error("release after failed hold", "quote_id", q.ID, "err", rerr)
		}
		return fmt.Errorf("hold slot: %w", err)
	}
	return e.confirmHold(ctx, c, res.Date, res.Period)
}

// reserve tries the requested period, or both periods in order when the
// customer named none.
func (e *Engine) reserve(ctx context.Context, date string, period agenda.Period) (agenda.ReserveResult, error) {
	if period != "" {
		return e.agenda.PreReserve(ctx, date, string(period))
	}
	var res agenda.ReserveResult
	for _, p := range []agenda.Period{agenda.PeriodMorning, agenda.PeriodAfternoon} {
		var err error
		res, err = e.agenda.PreReserve(ctx, date, string(p))
		if err != nil || res.OK || res.Reason == agenda.ReasonWeekFull {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) confirmHold(ctx context.Context, c *conversation, date string, period agenda.Period) error {
	var err error
	if c.att, err = e.attendance.Apply(ctx, c.att, attendance.EventDateReserved); err != nil {
		return err
	}
	e.log.Info("slot pre-reserved", "customer_id", c.customer.ID, "quote_id", c.att.CurrentQuoteID, "date", date, "period", period)
	return e.say(ctx, c, reply.IntentPreReserved, slotData(date, period))
}

// offerAlternative suggests the next free slot from the requested date on,
// or asks for another date when the lookahead has nothing.
func (e *Engine) offerAlternative(ctx context.Context, c *conversation, q quote.Quote, from string, period agenda.Period, reason agenda.Reason) error {
	cand, err := e.agenda.FindNextSlot(ctx, from, string(period))
	if err != nil {
		return fmt.Errorf("next slot: %w", err)
	}
	if cand == nil {
		if reason == agenda.ReasonWeekFull {
			return e.say(ctx, c, reply.IntentWeekFull, nil)
		}
		return e.say(ctx, c, reply.IntentUnavailable, nil)
	}
	if _, err := e.quotes.Prefer(ctx, q.ID, cand.Date, string(cand.Period)); err != nil {
		return fmt.Errorf("record suggestion: %w", err)
	}
	return e.say(ctx, c, reply.IntentSuggestSlot, slotData(cand.Date, cand.Period))
}

// dropHold gives the quote's pre-reserved unit back to the agenda.
func (e *Engine) dropHold(ctx context.Context, q quote.Quote) error {
	if !q.HoldsSlot() {
		return nil
	}
	if _, err := e.agenda.Release(ctx, q.SlotDate, q.SlotPeriod); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if _, err := e.quotes.ClearSlot(ctx, q.ID); err != nil {
		return fmt.Errorf("clear slot: %w", err)
	}
	return nil
}

func slotData(date string, period agenda.Period) map[string]string {
	return map[string]string{
		reply.KeyDate:   agenda.FormatBR(date),
		reply.KeyPeriod: period.Label(),
	}
}
