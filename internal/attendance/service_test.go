package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *MemoryRepo, *time.Time) {
	repo := NewMemoryRepo()
	svc := NewService(repo, 0, nil)
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }
	return svc, repo, &now
}

func TestCustomerNormalizesPhoneAndIsRaceSafe(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.Customer(ctx, "55 11 99999-0000@c.us")
			assert.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	c, err := svc.Customer(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, ids[0], c.ID)
	assert.Equal(t, "5511999990000", c.Phone)

	_, err = svc.Customer(ctx, "abc")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestGetOrCreateConcurrent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := svc.GetOrCreate(ctx, "cust-1")
			assert.NoError(t, err)
			ids[i] = a.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	a, err := svc.GetOrCreate(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, a.State)
	assert.Equal(t, ModeAuto, a.Mode)
}

func TestTakeoverGateAndLazyExpiry(t *testing.T) {
	ctx := context.Background()
	svc, _, now := newTestService()

	a, err := svc.GetOrCreate(ctx, "cust-1")
	require.NoError(t, err)
	a, err = svc.Apply(ctx, a, EventImageEstimated)
	require.NoError(t, err)

	a, err = svc.Takeover(ctx, "cust-1", 0, "cliente ligou")
	require.NoError(t, err)
	assert.Equal(t, ModeManual, a.Mode)
	assert.Equal(t, StateAwaitingDate, a.PreviousState)
	assert.Equal(t, now.Add(120*time.Minute), *a.ManualUntil)

	_, quiet, err := svc.Gate(ctx, a)
	require.NoError(t, err)
	assert.True(t, quiet)

	*now = now.Add(121 * time.Minute)
	a, quiet, err = svc.Gate(ctx, a)
	require.NoError(t, err)
	assert.False(t, quiet)
	assert.Equal(t, ModeAuto, a.Mode)
	assert.Equal(t, StateAwaitingDate, a.State)
	assert.Nil(t, a.ManualUntil)
}

func TestReleaseWithoutPreviousStateFallsBackToOwnerReview(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	a, err := svc.GetOrCreate(ctx, "cust-1")
	require.NoError(t, err)
	a.Mode = ModeManual
	require.NoError(t, repo.Update(ctx, a))

	a, err = svc.Release(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingOwner, a.State)
	assert.Equal(t, ModeAuto, a.Mode)
}

func TestReleaseOnAutoAttendanceIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	a, err := svc.GetOrCreate(ctx, "cust-1")
	require.NoError(t, err)
	a, err = svc.AttachQuote(ctx, a, "quote-1", EventImageEstimated)
	require.NoError(t, err)

	got, err := svc.Release(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingDate, got.State)
	assert.Equal(t, ModeAuto, got.Mode)
	assert.Equal(t, "quote-1", got.CurrentQuoteID)
}

func TestOwnerDecisionDuringTakeoverSurvivesRelease(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.GetOrCreate(ctx, "cust-1")
	require.NoError(t, err)
	_, err = svc.Takeover(ctx, "cust-1", 30, "")
	require.NoError(t, err)

	a, err := svc.Close(ctx, "cust-1", EventOwnerRejected)
	require.NoError(t, err)
	assert.Equal(t, StateEscalated, a.State)
	assert.Equal(t, ModeManual, a.Mode)

	a, err = svc.Release(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, StateEscalated, a.State)

	_, err = svc.Takeover(ctx, "cust-1", 30, "")
	require.NoError(t, err)
	a, err = svc.Close(ctx, "cust-1", EventOwnerClosed)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, a.State)
	assert.Equal(t, ModeAuto, a.Mode)
	assert.Nil(t, a.ManualUntil)
}

func TestReopenClearsQuoteLink(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	a, err := svc.GetOrCreate(ctx, "cust-1")
	require.NoError(t, err)
	a, err = svc.AttachQuote(ctx, a, "quote-1", EventImageReview)
	require.NoError(t, err)
	a, err = svc.Close(ctx, "cust-1", EventOwnerApproved)
	require.NoError(t, err)
	require.Equal(t, "quote-1", a.CurrentQuoteID)

	a, err = svc.Reopen(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, a.State)
	assert.Empty(t, a.CurrentQuoteID)
}
