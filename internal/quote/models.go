package quote

import (
	"encoding/json"
	"errors"
	"time"
)

// Status is the owner-facing lifecycle of a quote.
type Status string

const (
	StatusPending      Status = "PENDENTE"
	StatusApproved     Status = "APROVADO"
	StatusRejected     Status = "RECUSADO"
	StatusManualClosed Status = "FINALIZADO_MANUAL"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusManualClosed:
		return Status(s), nil
	default:
		return "", ErrInvalidArgument
	}
}

// Quote is a repair estimate for one photo of one customer. Never deleted.
//
// EstimatedValue nil means a person has to price it.
// SlotDate/SlotPeriod hold the pre-reserved agenda unit, if any.
type Quote struct {
	ID              string          `json:"id" db:"id"`
	CustomerID      string          `json:"customer_id" db:"customer_id"`
	ImageID         string          `json:"image_id,omitempty" db:"image_id"`
	EstimatedValue  *float64        `json:"estimated_value" db:"estimated_value"`
	MatchScore      *float64        `json:"match_score,omitempty" db:"match_score"`
	RefImageID      *int64          `json:"ref_image_id,omitempty" db:"ref_image_id"`
	ThresholdPassed bool            `json:"threshold_passed" db:"threshold_passed"`
	ShopCanDo       bool            `json:"shop_can_do" db:"shop_can_do"`
	Details         json.RawMessage `json:"details,omitempty" db:"details"`
	Status          Status          `json:"status" db:"status"`

	PreferredDate   string     `json:"preferred_date,omitempty" db:"preferred_date"`
	PreferredPeriod string     `json:"preferred_period,omitempty" db:"preferred_period"`
	SlotDate        string     `json:"slot_date,omitempty" db:"slot_date"`
	SlotPeriod      string     `json:"slot_period,omitempty" db:"slot_period"`
	SlotReservedAt  *time.Time `json:"slot_reserved_at,omitempty" db:"slot_reserved_at"`

	ScheduledDate string     `json:"scheduled_date,omitempty" db:"scheduled_date"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectReason  string     `json:"reject_reason,omitempty" db:"reject_reason"`
	FinalValue    *float64   `json:"final_value,omitempty" db:"final_value"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	ClosedBy      string     `json:"closed_by,omitempty" db:"closed_by"`
	Note          string     `json:"note,omitempty" db:"note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HoldsSlot reports whether an agenda unit is pre-reserved for this quote.
func (q Quote) HoldsSlot() bool {
	return q.SlotDate != "" && q.SlotPeriod != ""
}

// Rejectable reports whether the owner can still reject q.
func (q Quote) Rejectable() bool {
	return q.Status == StatusPending
}

// Closable reports whether the owner can still close q by hand.
func (q Quote) Closable() bool {
	return q.Status == StatusPending || q.Status == StatusApproved
}

// ManualClose carries the owner's closing data.
type ManualClose struct {
	FinalValue    *float64
	ScheduledDate string
	Note          string
	ClosedBy      string
}

func (in ManualClose) Validate() error {
	if in.FinalValue != nil && *in.FinalValue < 0 {
		return ErrInvalidArgument
	}
	return nil
}

// DefaultRejectReason is recorded when the owner rejects without a reason.
const DefaultRejectReason = "precisa avaliacao presencial"

var (
	ErrNotFound        = errors.New("quote: not found")
	ErrInvalidArgument = errors.New("quote: invalid argument")
	ErrDateRequired    = errors.New("quote: scheduled date is required")
	ErrAlreadyDecided  = errors.New("quote: already decided")
)
