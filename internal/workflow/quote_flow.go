package workflow

import (
	"context"
	"fmt"

	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/estimation"
	"github.com/SandLosT/Attendant/internal/reply"
)

// onImage runs the quote workflow: estimate, record the quote, advance the
// attendance and answer. Any estimation failure is treated as "needs review".
func (e *Engine) onImage(ctx context.Context, c *conversation, photo *inboundImage) error {
	if photo == nil {
		return e.say(ctx, c, reply.IntentAskPhoto, nil)
	}

	est, err := e.estimator.Estimate(ctx, estimation.Image{
		Data:     photo.data,
		Filename: photo.filename,
		MIME:     photo.mime,
	})
	if err != nil {
		e.log.Warn("estimation failed, sending to review", "customer_id", c.customer.ID, "err", err)
		est = estimation.Estimate{}
	}

	imageID := ""
	if photo.meta != nil {
		imageID = photo.meta.ID
	}
	q, err := e.quotes.Create(ctx, c.customer.ID, imageID, est)
	if err != nil {
		return fmt.Errorf("create quote: %w", err)
	}

	event := attendance.EventImageReview
	intent := reply.IntentHumanReview
	var data map[string]string
	if q.EstimatedValue != nil {
		event = attendance.EventImageEstimated
		intent = reply.IntentEstimateAskDate
		data = map[string]string{reply.KeyValue: reply.FormatValue(*q.EstimatedValue)}
	}

	c.att, err = e.attendance.AttachQuote(ctx, c.att, q.ID, event)
	if err != nil {
		return fmt.Errorf("attach quote: %w", err)
	}
	e.log.Info("quote opened", "customer_id", c.customer.ID, "quote_id", q.ID, "state", c.att.State)
	return e.say(ctx, c, intent, data)
}

// onText answers customer text according to the attendance state.
func (e *Engine) onText(ctx context.Context, c *conversation) error {
	intent := attendance.DetectIntent(c.text)

	switch c.att.State {
	case attendance.StateOpen:
		if intent == attendance.IntentNewQuote {
			return e.say(ctx, c, reply.IntentNewQuote, nil)
		}
		return e.say(ctx, c, reply.IntentAskPhoto, nil)

	case attendance.StateAwaitingDate:
		return e.onDateText(ctx, c, intent)

	case attendance.StateAwaitingOwner:
		// the pending quote keeps its link and any held slot
		if intent == attendance.IntentNewQuote {
			return e.say(ctx, c, reply.IntentNewQuote, nil)
		}
		return e.say(ctx, c, reply.IntentAwaitingApproval, nil)

	case attendance.StateClosed:
		if intent == attendance.IntentNewQuote {
			return e.restart(ctx, c)
		}
		return e.say(ctx, c, reply.IntentClosed, nil)

	case attendance.StateEscalated:
		if intent == attendance.IntentNewQuote {
			return e.restart(ctx, c)
		}
		return e.say(ctx, c, reply.IntentEscalated, nil)

	default:
		return fmt.Errorf("%w: %s", attendance.ErrInvalidArgument, c.att.State)
	}
}

func (e *Engine) restart(ctx context.Context, c *conversation) error {
	var err error
	c.att, err = e.attendance.Reopen(ctx, c.att)
	if err != nil {
		return fmt.Errorf("reopen: %w", err)
	}
	return e.say(ctx, c, reply.IntentNewQuote, nil)
}
