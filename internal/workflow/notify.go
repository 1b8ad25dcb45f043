package workflow

import (
	"context"

	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/reply"
)

// say generates a reply for intent and delivers it. Delivery problems are
// logged and never fail the event.
func (e *Engine) say(ctx context.Context, c *conversation, intent reply.Intent, data map[string]string) error {
	text := e.replies.Generate(ctx, reply.Request{
		State:        string(c.att.State),
		Intent:       intent,
		CustomerText: c.text,
		Data:         data,
		Seed:         c.customer.Phone,
	})
	e.deliver(ctx, c.customer, text)
	return nil
}

func (e *Engine) deliver(ctx context.Context, cust attendance.Customer, text string) {
	if err := e.sender.SendMessage(ctx, cust.Phone, text); err != nil {
		e.log.Warn("send failed", "customer_id", cust.ID, "phone", cust.Phone, "err", err)
	}
	if err := e.history.Outbound(ctx, cust.ID, text); err != nil {
		e.log.Warn("journal outbound failed", "customer_id", cust.ID, "err", err)
	}
}
