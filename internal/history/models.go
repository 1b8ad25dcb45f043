package history

import "time"

// Entry is one journaled message.
//
// Entries are never updated or deleted. Inbound text is stored even while an
// attendance is under manual control, so the owner can read the conversation.
type Entry struct {
	ID         string    `json:"id" db:"id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	Direction  Direction `json:"direction" db:"direction"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}
