package workflow

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/estimation"
	"github.com/SandLosT/Attendant/internal/history"
	"github.com/SandLosT/Attendant/internal/media"
	"github.com/SandLosT/Attendant/internal/quote"
	"github.com/SandLosT/Attendant/internal/reply"
	"github.com/SandLosT/Attendant/internal/whatsapp"

	"github.com/stretchr/testify/require"
)

const phone = "5511999990000"

type fakeEstimator struct {
	mu    sync.Mutex
	est   estimation.Estimate
	err   error
	calls int
}

func (f *fakeEstimator) Estimate(ctx context.Context, img estimation.Image) (estimation.Estimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.est, f.err
}

func quotable(v float64) estimation.Estimate {
	return estimation.Estimate{Value: &v, ThresholdPassed: true, ShopCanDo: true}
}

type harness struct {
	t       *testing.T
	ctx     context.Context
	now     time.Time
	engine  *Engine
	sender  *whatsapp.MemorySender
	est     *fakeEstimator
	agenda  *agenda.Service
	store   *flakyStore
	att     *attendance.Service
	quotes  *quote.Service
	journal *history.MemoryRepo
	images  *media.MemoryRepo
}

func newHarness(t *testing.T, cfg agenda.Config) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		ctx:     context.Background(),
		now:     time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC),
		sender:  whatsapp.NewMemorySender(),
		est:     &fakeEstimator{est: quotable(350)},
		journal: history.NewMemoryRepo(),
		images:  media.NewMemoryRepo(),
	}
	clock := func() time.Time { return h.now }
	cfg.Location = time.UTC
	h.store = &flakyStore{MemoryStore: agenda.NewMemoryStore()}
	h.agenda = agenda.NewService(h.store, cfg, nil).WithClock(clock)
	h.att = attendance.NewService(attendance.NewMemoryRepo(), 0, nil).WithClock(clock)
	h.quotes = quote.NewService(quote.NewMemoryRepo(), nil)

	engine, err := NewEngine(Deps{
		Attendance: h.att,
		Quotes:     h.quotes,
		Agenda:     h.agenda,
		Media:      media.NewService(h.images, media.NewMemoryStore(), nil),
		History:    history.NewService(h.journal),
		Estimator:  h.est,
		Replies:    reply.TemplateGenerator{},
		Sender:     h.sender,
	})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) text(body string) {
	h.t.Helper()
	require.NoError(h.t, h.engine.HandleInbound(h.ctx, whatsapp.Event{Phone: phone, Kind: whatsapp.KindText, Text: body}))
}

func (h *harness) image(content string) {
	h.t.Helper()
	require.NoError(h.t, h.engine.HandleInbound(h.ctx, whatsapp.Event{
		Phone:  phone + "@c.us",
		Kind:   whatsapp.KindImage,
		Base64: base64.StdEncoding.EncodeToString([]byte(content)),
		MIME:   "image/jpeg",
	}))
}

func (h *harness) attendance() attendance.Attendance {
	h.t.Helper()
	_, a, err := h.att.Lookup(h.ctx, phone)
	require.NoError(h.t, err)
	return a
}

func (h *harness) currentQuote() quote.Quote {
	h.t.Helper()
	q, err := h.quotes.Get(h.ctx, h.attendance().CurrentQuoteID)
	require.NoError(h.t, err)
	return q
}

func (h *harness) lastReply() string {
	h.t.Helper()
	msg, ok := h.sender.Last(phone)
	require.True(h.t, ok, "expected a reply")
	return msg
}

func (h *harness) slot(date string, period agenda.Period) agenda.Slot {
	h.t.Helper()
	s, _, err := h.agenda.EnsureSlot(h.ctx, date, string(period))
	require.NoError(h.t, err)
	return s
}

func (h *harness) fill(date string, period agenda.Period, n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		res, err := h.agenda.PreReserve(h.ctx, date, string(period))
		require.NoError(h.t, err)
		require.True(h.t, res.OK, "fill %s %s: %s", date, period, res.Reason)
	}
}

func expected(intent reply.Intent, data map[string]string) string {
	return reply.Fallback(reply.Request{Intent: intent, Data: data, Seed: phone})
}

func whatsappText(body string) whatsapp.Event {
	return whatsapp.Event{Phone: phone, Kind: whatsapp.KindText, Text: body}
}

func whatsappImage(b64 string) whatsapp.Event {
	return whatsapp.Event{Phone: phone, Kind: whatsapp.KindImage, Base64: b64}
}

// flakyStore fails releases while releaseErr is set.
type flakyStore struct {
	*agenda.MemoryStore
	releaseErr error
}

func (s *flakyStore) Release(ctx context.Context, date string, period agenda.Period) (bool, error) {
	if s.releaseErr != nil {
		return false, s.releaseErr
	}
	return s.MemoryStore.Release(ctx, date, period)
}
