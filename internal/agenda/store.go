package agenda

import "context"

// Store is the persistence contract for slot counters.
//
// Reserve must be atomic: the weekly total and the target slot are
// re-read under lock in one unit of work before the counter moves.
type Store interface {
	EnsureSlot(ctx context.Context, date string, period Period, defaultCapacity int) (Slot, bool, error)
	GetSlot(ctx context.Context, date string, period Period) (Slot, error)
	ReservedInWeek(ctx context.Context, week Week) (int, error)
	Reserve(ctx context.Context, date string, period Period, week Week, weeklyLimit int) (ReserveResult, error)
	Release(ctx context.Context, date string, period Period) (bool, error)
	SetBlocked(ctx context.Context, date string, period Period, blocked bool) (bool, error)
	ListBetween(ctx context.Context, from, to string) ([]Slot, error)
}
