package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/history"
	"github.com/SandLosT/Attendant/internal/quote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reservedQuote leaves the customer in AGUARDANDO_APROVACAO_DONO holding
// 2025-12-28 MANHA.
func reservedQuote(t *testing.T, h *harness) quote.Quote {
	t.Helper()
	h.image("photo-1")
	h.text("pode ser 28/12 de manhã")
	q := h.currentQuote()
	require.True(t, q.HoldsSlot())
	require.Equal(t, 1, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
	return q
}

func TestRejectReleasesHeldSlot(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	d, err := h.engine.Reject(h.ctx, q.ID, "")
	require.NoError(t, err)

	assert.Equal(t, quote.StatusRejected, d.Quote.Status)
	assert.Equal(t, quote.DefaultRejectReason, d.Quote.RejectReason)
	assert.False(t, d.Quote.HoldsSlot())
	assert.Equal(t, attendance.StateEscalated, d.Attendance.State)
	assert.Equal(t, 0, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
	assert.Equal(t, rejectedNotice, h.lastReply())

	_, err = h.engine.Reject(h.ctx, q.ID, "again")
	assert.ErrorIs(t, err, quote.ErrAlreadyDecided)
}

func TestFailedReleaseLeavesDecisionRetryable(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	h.store.releaseErr = errors.New("db down")
	_, err := h.engine.Reject(h.ctx, q.ID, "")
	require.Error(t, err)
	_, err = h.engine.ManualClose(h.ctx, q.ID, quote.ManualClose{})
	require.Error(t, err)

	got, err := h.quotes.Get(h.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusPending, got.Status)
	assert.True(t, got.HoldsSlot())
	assert.Equal(t, 1, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)

	h.store.releaseErr = nil
	d, err := h.engine.Reject(h.ctx, q.ID, "")
	require.NoError(t, err)
	assert.Equal(t, quote.StatusRejected, d.Quote.Status)
	assert.Equal(t, 0, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
}

func TestManualCloseRejectsNegativeValueBeforeRelease(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	v := -1.0
	_, err := h.engine.ManualClose(h.ctx, q.ID, quote.ManualClose{FinalValue: &v})
	assert.ErrorIs(t, err, quote.ErrInvalidArgument)
	assert.Equal(t, 1, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
}

func TestApproveRequiresDate(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	_, err := h.engine.Approve(h.ctx, q.ID, "", "")
	assert.ErrorIs(t, err, quote.ErrDateRequired)

	_, err = h.engine.Approve(h.ctx, q.ID, "31/02/2026", "")
	assert.ErrorIs(t, err, quote.ErrInvalidArgument)

	assert.Equal(t, quote.StatusPending, h.currentQuote().Status)
}

func TestApproveOnHeldDateKeepsSlot(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	d, err := h.engine.Approve(h.ctx, q.ID, "28/12/2025", "trazer chave reserva")
	require.NoError(t, err)

	assert.Equal(t, quote.StatusApproved, d.Quote.Status)
	assert.Equal(t, "2025-12-28", d.Quote.ScheduledDate)
	assert.Equal(t, "trazer chave reserva", d.Quote.Note)
	assert.NotNil(t, d.Quote.ApprovedAt)
	assert.True(t, d.Quote.HoldsSlot())
	assert.Equal(t, attendance.StateClosed, d.Attendance.State)
	assert.Equal(t, 1, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
	assert.Equal(t, fmt.Sprintf(approvedNotice, "28/12/2025"), h.lastReply())
}

func TestApproveOnOtherDateReleasesSlot(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	d, err := h.engine.Approve(h.ctx, q.ID, "2026-01-05", "")
	require.NoError(t, err)

	assert.False(t, d.Quote.HoldsSlot())
	assert.Equal(t, 0, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
	assert.False(t, h.currentQuote().HoldsSlot())
}

func TestManualCloseWithoutDateReleasesSlotAndManualMode(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)
	_, err := h.engine.Takeover(h.ctx, phone, 60, "negociando")
	require.NoError(t, err)

	value := 420.0
	d, err := h.engine.ManualClose(h.ctx, q.ID, quote.ManualClose{FinalValue: &value, Note: "fechado por telefone", ClosedBy: "owner"})
	require.NoError(t, err)

	assert.Equal(t, quote.StatusManualClosed, d.Quote.Status)
	assert.Equal(t, 420.0, *d.Quote.FinalValue)
	assert.Equal(t, "owner", d.Quote.ClosedBy)
	assert.Equal(t, attendance.StateClosed, d.Attendance.State)
	assert.Equal(t, attendance.ModeAuto, d.Attendance.Mode)
	assert.Nil(t, d.Attendance.ManualUntil)
	assert.Equal(t, 0, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
	assert.Equal(t, closedNotice, h.lastReply())
}

func TestManualCloseWithDateKeepsSlot(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	d, err := h.engine.ManualClose(h.ctx, q.ID, quote.ManualClose{ScheduledDate: "28/12/2025"})
	require.NoError(t, err)
	assert.Equal(t, "2025-12-28", d.Quote.ScheduledDate)
	assert.Equal(t, 1, h.slot("2025-12-28", agenda.PeriodMorning).Reserved)
	assert.Equal(t, fmt.Sprintf(closedWithDateNotice, "28/12/2025"), h.lastReply())
}

func TestDecisionDuringManualModeSurvivesRelease(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)
	_, err := h.engine.Takeover(h.ctx, phone, 60, "")
	require.NoError(t, err)

	_, err = h.engine.Approve(h.ctx, q.ID, "28/12/2025", "")
	require.NoError(t, err)
	a, err := h.engine.ReleaseManual(h.ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, attendance.StateClosed, a.State)
}

func TestClosedConversationRestartsOnNewQuote(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)
	_, err := h.engine.Approve(h.ctx, q.ID, "28/12/2025", "")
	require.NoError(t, err)

	h.text("obrigado!")
	assert.Equal(t, attendance.StateClosed, h.attendance().State)

	h.text("tenho outro amassado")
	a := h.attendance()
	assert.Equal(t, attendance.StateOpen, a.State)
	assert.Empty(t, a.CurrentQuoteID)
}

func TestDecisionOnSupersededQuoteLeavesConversation(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	h.image("photo-1")
	first := h.currentQuote()
	h.image("photo-2")
	second := h.currentQuote()
	require.NotEqual(t, first.ID, second.ID)

	d, err := h.engine.Reject(h.ctx, first.ID, "foto antiga")
	require.NoError(t, err)
	assert.Equal(t, quote.StatusRejected, d.Quote.Status)
	assert.Equal(t, attendance.StateAwaitingDate, h.attendance().State)
	assert.Equal(t, second.ID, h.attendance().CurrentQuoteID)
}

func TestOwnerQueries(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	q := reservedQuote(t, h)

	detail, err := h.engine.GetQuote(h.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, phone, detail.Customer.Phone)
	assert.Equal(t, attendance.StateAwaitingOwner, detail.Attendance.State)

	pending, err := h.engine.ListQuotes(h.ctx, "PENDENTE", 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = h.engine.ListQuotes(h.ctx, "WHATEVER", 0)
	assert.ErrorIs(t, err, quote.ErrInvalidArgument)

	_, err = h.engine.GetQuote(h.ctx, "missing")
	assert.ErrorIs(t, err, quote.ErrNotFound)
}

func TestConversationJournal(t *testing.T) {
	h := newHarness(t, agenda.Config{})
	h.text("oi")
	h.image("photo-1")

	entries, err := h.engine.Conversation(h.ctx, "+55 (11) 99999-0000", 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "oi", entries[0].Body)
	assert.Equal(t, history.DirectionIn, entries[0].Direction)
	assert.Equal(t, imageMarker, entries[2].Body)
	assert.Equal(t, history.DirectionOut, entries[3].Direction)

	_, err = h.engine.Conversation(h.ctx, "5511000000000", 0)
	assert.ErrorIs(t, err, attendance.ErrNotFound)
}
