package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/dedup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	calls atomic.Int32
	err   error
}

func (g *countingGenerator) GenerateSlots(ctx context.Context, from string, days, capacity int) (agenda.GenerateResult, error) {
	g.calls.Add(1)
	return agenda.GenerateResult{Created: 2}, g.err
}

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 0
}

func TestGenerateNowUsesAgendaDefaults(t *testing.T) {
	now := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	svc := agenda.NewService(agenda.NewMemoryStore(), agenda.Config{GenerateDays: 3, DefaultCapacity: 2}, nil).
		WithClock(func() time.Time { return now })
	s := New(Config{}, svc, nil, nil)

	res, err := s.GenerateNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, res.Created)

	res, err = s.GenerateNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 6, res.Existing)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(Config{GenerateSchedule: "not a schedule"}, &countingGenerator{}, nil, nil)
	assert.Error(t, s.Start())
}

func TestScheduledJobsRun(t *testing.T) {
	gen := &countingGenerator{err: errors.New("db down")}
	sw := &countingSweeper{}
	s := New(Config{GenerateSchedule: "@every 1s", SweepSchedule: "@every 1s"}, gen, sw, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return gen.calls.Load() > 0 && sw.calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	cache := dedup.NewMemoryCache()
	ctx := context.Background()
	_, err := cache.Seen(ctx, "msg-1", time.Millisecond)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	s := New(Config{}, nil, cache, nil)
	s.runSweep()
	assert.Equal(t, 0, cache.Len())
}
