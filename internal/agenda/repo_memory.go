package agenda

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps slots in a map guarded by one mutex.
// Every method runs under the lock, which gives Reserve the same
// serialization the SQL store gets from row locks. Used by tests.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[slotKey]*Slot
	clock func() time.Time
}

type slotKey struct {
	date   string
	period Period
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: map[slotKey]*Slot{}, clock: time.Now}
}

func (m *MemoryStore) EnsureSlot(ctx context.Context, date string, period Period, defaultCapacity int) (Slot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := slotKey{date, period}
	if s, ok := m.slots[k]; ok {
		return *s, false, nil
	}
	now := m.clock().UTC()
	s := &Slot{
		ID:        uuid.NewString(),
		Date:      date,
		Period:    period,
		Capacity:  defaultCapacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.slots[k] = s
	return *s, true, nil
}

func (m *MemoryStore) GetSlot(ctx context.Context, date string, period Period) (Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotKey{date, period}]
	if !ok {
		return Slot{}, ErrNotFound
	}
	return *s, nil
}

func (m *MemoryStore) ReservedInWeek(ctx context.Context, week Week) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumLocked(week), nil
}

func (m *MemoryStore) Reserve(ctx context.Context, date string, period Period, week Week, weeklyLimit int) (ReserveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sumLocked(week) >= weeklyLimit {
		return ReserveResult{Reason: ReasonWeekFull}, nil
	}
	s, ok := m.slots[slotKey{date, period}]
	if !ok || !s.Open() {
		return ReserveResult{Reason: ReasonUnavailable}, nil
	}
	s.Reserved++
	s.UpdatedAt = m.clock().UTC()
	return ReserveResult{OK: true, Date: date, Period: period}, nil
}

func (m *MemoryStore) Release(ctx context.Context, date string, period Period) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotKey{date, period}]
	if !ok || s.Blocked || s.Reserved <= 0 {
		return false, nil
	}
	s.Reserved--
	s.UpdatedAt = m.clock().UTC()
	return true, nil
}

func (m *MemoryStore) SetBlocked(ctx context.Context, date string, period Period, blocked bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slotKey{date, period}]
	if !ok {
		return false, nil
	}
	s.Blocked = blocked
	s.UpdatedAt = m.clock().UTC()
	return true, nil
}

func (m *MemoryStore) ListBetween(ctx context.Context, from, to string) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Slot
	for _, s := range m.slots {
		if s.Date >= from && s.Date <= to {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}

// canonical dates sort lexically, so string comparison is a date comparison.
func (m *MemoryStore) sumLocked(week Week) int {
	total := 0
	for _, s := range m.slots {
		if s.Date >= week.Start && s.Date <= week.End {
			total += s.Reserved
		}
	}
	return total
}
