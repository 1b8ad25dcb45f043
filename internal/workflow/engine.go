package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/estimation"
	"github.com/SandLosT/Attendant/internal/history"
	"github.com/SandLosT/Attendant/internal/media"
	"github.com/SandLosT/Attendant/internal/quote"
	"github.com/SandLosT/Attendant/internal/reply"
	"github.com/SandLosT/Attendant/internal/whatsapp"
	"github.com/SandLosT/Attendant/pkg/logger"
)

// imageMarker is what the journal stores for an inbound photo.
const imageMarker = "[imagem recebida]"

// Deps wires the engine to its collaborators.
type Deps struct {
	Attendance *attendance.Service
	Quotes     *quote.Service
	Agenda     *agenda.Service
	Media      *media.Service
	History    *history.Service
	Estimator  estimation.Estimator
	Replies    reply.Generator
	Sender     whatsapp.Sender
	Logger     *slog.Logger
}

// Engine runs the conversation: inbound dispatch, the quote workflow and the
// owner operations. Events for one customer are handled one at a time.
type Engine struct {
	attendance *attendance.Service
	quotes     *quote.Service
	agenda     *agenda.Service
	media      *media.Service
	history    *history.Service
	estimator  estimation.Estimator
	replies    reply.Generator
	sender     whatsapp.Sender
	log        *slog.Logger
	locks      *keyedMutex
}

func NewEngine(d Deps) (*Engine, error) {
	switch {
	case d.Attendance == nil, d.Quotes == nil, d.Agenda == nil:
		return nil, errors.New("workflow: attendance, quote and agenda services are required")
	case d.Media == nil, d.History == nil:
		return nil, errors.New("workflow: media and history services are required")
	case d.Estimator == nil, d.Sender == nil:
		return nil, errors.New("workflow: estimator and sender are required")
	}
	if d.Replies == nil {
		d.Replies = reply.TemplateGenerator{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Engine{
		attendance: d.Attendance,
		quotes:     d.Quotes,
		agenda:     d.Agenda,
		media:      d.Media,
		history:    d.History,
		estimator:  d.Estimator,
		replies:    d.Replies,
		sender:     d.Sender,
		log:        d.Logger.With(slog.String("service", "workflow")),
		locks:      newKeyedMutex(),
	}, nil
}

// conversation is the per-event working set.
type conversation struct {
	customer attendance.Customer
	att      attendance.Attendance
	text     string
}

// HandleInbound processes one deduplicated customer message.
func (e *Engine) HandleInbound(ctx context.Context, ev whatsapp.Event) error {
	phone, err := attendance.NormalizePhone(ev.Phone)
	if err != nil {
		return err
	}
	unlock := e.locks.Lock(phone)
	defer unlock()

	cust, err := e.attendance.Customer(ctx, phone)
	if err != nil {
		return fmt.Errorf("customer: %w", err)
	}
	att, err := e.attendance.GetOrCreate(ctx, cust.ID)
	if err != nil {
		return fmt.Errorf("attendance: %w", err)
	}

	journal := ev.Text
	if ev.Kind == whatsapp.KindImage {
		journal = imageMarker
	}
	if err := e.history.Inbound(ctx, cust.ID, journal); err != nil {
		e.log.Warn("journal inbound failed", "customer_id", cust.ID, "err", err)
	}

	att, quiet, err := e.attendance.Gate(ctx, att)
	if err != nil {
		return fmt.Errorf("gate: %w", err)
	}

	var photo *inboundImage
	if ev.Kind == whatsapp.KindImage {
		photo = e.storeImage(ctx, cust.ID, ev)
	}

	if quiet {
		logger.From(ctx).Info("manual mode, no automated reply", "customer_id", cust.ID, "kind", ev.Kind)
		return nil
	}

	conv := &conversation{customer: cust, att: att, text: ev.Text}
	switch ev.Kind {
	case whatsapp.KindImage:
		return e.onImage(ctx, conv, photo)
	case whatsapp.KindText:
		return e.onText(ctx, conv)
	default:
		return nil
	}
}

// inboundImage is a decoded photo; meta is nil when storage failed.
type inboundImage struct {
	data     []byte
	mime     string
	filename string
	meta     *media.Image
}

// storeImage decodes and persists the photo. It returns nil only when the
// payload is unusable.
func (e *Engine) storeImage(ctx context.Context, customerID string, ev whatsapp.Event) *inboundImage {
	data, mime, err := media.DecodeBase64(ev.Base64)
	if err != nil {
		e.log.Warn("image payload unusable", "customer_id", customerID, "err", err)
		return nil
	}
	if ev.MIME != "" {
		mime = ev.MIME
	}
	photo := &inboundImage{data: data, mime: mime, filename: ev.Filename}
	img, err := e.media.Save(ctx, media.Upload{
		CustomerID: customerID,
		Data:       data,
		Filename:   ev.Filename,
		MIME:       mime,
	})
	if err != nil {
		e.log.Error("image not stored", "customer_id", customerID, "err", err)
		return photo
	}
	photo.meta = &img
	return photo
}
