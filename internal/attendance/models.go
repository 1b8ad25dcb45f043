package attendance

import (
	"errors"
	"fmt"
	"time"
)

// State is the conversational position of a customer. Closed set.
type State string

const (
	StateOpen          State = "ABERTO"
	StateAwaitingDate  State = "AGUARDANDO_DATA"
	StateAwaitingOwner State = "AGUARDANDO_APROVACAO_DONO"
	StateClosed        State = "FINALIZADO"
	StateEscalated     State = "ESCALADO_HUMANO"
)

// ParseState accepts stored values, folding legacy open states into StateOpen.
func ParseState(s string) (State, error) {
	switch s {
	case string(StateOpen), "EM_CONVERSA", "AGUARDANDO_FOTO", "":
		return StateOpen, nil
	case string(StateAwaitingDate):
		return StateAwaitingDate, nil
	case string(StateAwaitingOwner):
		return StateAwaitingOwner, nil
	case string(StateClosed):
		return StateClosed, nil
	case string(StateEscalated):
		return StateEscalated, nil
	default:
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidArgument, s)
	}
}

// Mode decides whether the bot may reply.
type Mode string

const (
	ModeAuto   Mode = "AUTO"
	ModeManual Mode = "MANUAL"
)

// Customer is identified by a digits-only phone number.
type Customer struct {
	ID        string    `json:"id" db:"id"`
	Phone     string    `json:"phone" db:"phone"`
	Name      string    `json:"name,omitempty" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Attendance is the one-per-customer workflow record.
// State only moves through Transition; callers never assign it directly.
type Attendance struct {
	ID             string     `json:"id" db:"id"`
	CustomerID     string     `json:"customer_id" db:"customer_id"`
	State          State      `json:"state" db:"state"`
	Mode           Mode       `json:"mode" db:"mode"`
	ManualUntil    *time.Time `json:"manual_until,omitempty" db:"manual_until"`
	ManualReason   string     `json:"manual_reason,omitempty" db:"manual_reason"`
	PreviousState  State      `json:"previous_state,omitempty" db:"previous_state"`
	CurrentQuoteID string     `json:"current_quote_id,omitempty" db:"current_quote_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// ManualActive reports whether the owner currently holds the conversation.
func (a Attendance) ManualActive(now time.Time) bool {
	return a.Mode == ModeManual && a.ManualUntil != nil && now.Before(*a.ManualUntil)
}

var (
	ErrNotFound          = errors.New("attendance: not found")
	ErrConflict          = errors.New("attendance: already exists")
	ErrInvalidArgument   = errors.New("attendance: invalid argument")
	ErrInvalidPhone      = errors.New("attendance: invalid phone")
	ErrInvalidTransition = errors.New("attendance: invalid transition")
)
