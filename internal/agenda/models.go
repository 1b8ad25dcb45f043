package agenda

import (
	"errors"
	"time"
)

// Period is one half of a working day.
type Period string

const (
	PeriodMorning   Period = "MANHA"
	PeriodAfternoon Period = "TARDE"
)

func (p Period) Valid() bool {
	return p == PeriodMorning || p == PeriodAfternoon
}

// Other returns the complementary period.
func (p Period) Other() Period {
	if p == PeriodMorning {
		return PeriodAfternoon
	}
	return PeriodMorning
}

// Label is the customer-facing name of the period.
func (p Period) Label() string {
	switch p {
	case PeriodMorning:
		return "manhã"
	case PeriodAfternoon:
		return "tarde"
	default:
		return ""
	}
}

// Slot is the capacity counter for a (date, period) pair.
//
// Invariants:
// - 0 <= Reserved <= Capacity
// - (Date, Period) is unique
// - Date is always canonical YYYY-MM-DD
type Slot struct {
	ID        string    `json:"id" db:"id"`
	Date      string    `json:"date" db:"slot_date"`
	Period    Period    `json:"period" db:"period"`
	Capacity  int       `json:"capacity" db:"capacity"`
	Reserved  int       `json:"reserved" db:"reserved"`
	Blocked   bool      `json:"blocked" db:"blocked"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Free reports how many customers still fit in the slot.
func (s Slot) Free() int {
	if s.Reserved >= s.Capacity {
		return 0
	}
	return s.Capacity - s.Reserved
}

// Open reports whether the slot accepts another reservation.
func (s Slot) Open() bool {
	return !s.Blocked && s.Reserved < s.Capacity
}

// Reason explains a refused pre-reservation.
type Reason string

const (
	ReasonWeekFull    Reason = "SEMANA_CHEIA"
	ReasonUnavailable Reason = "INDISPONIVEL"
)

// ReserveResult is the only shape a pre-reservation returns.
// Capacity conflicts are values, not errors.
type ReserveResult struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
	Date   string `json:"date,omitempty"`
	Period Period `json:"period,omitempty"`
}

// Candidate is a free (date, period) found by the next-slot search.
type Candidate struct {
	Date   string `json:"date"`
	Period Period `json:"period"`
}

// Availability is a slot row as shown on the owner agenda.
type Availability struct {
	Slot
	Free     int  `json:"free"`
	WeekFull bool `json:"week_full"`
}

// GenerateResult counts slots touched by a horizon generation run.
type GenerateResult struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}

// Week is an ISO week, Monday through Sunday, as canonical dates.
type Week struct {
	Start string
	End   string
}

var (
	ErrNotFound        = errors.New("agenda: slot not found")
	ErrInvalidArgument = errors.New("agenda: invalid argument")
)
