package media

import (
	"errors"
	"time"
)

// Image is a customer photo stored in object storage.
// ObjectKey is content-addressed: one object per distinct photo per customer.
type Image struct {
	ID           string    `json:"id" db:"id"`
	CustomerID   string    `json:"customer_id" db:"customer_id"`
	ObjectKey    string    `json:"object_key" db:"object_key"`
	OriginalName string    `json:"original_name,omitempty" db:"original_name"`
	MIME         string    `json:"mime" db:"mime"`
	Size         int64     `json:"size_bytes" db:"size_bytes"`
	SHA256       string    `json:"sha256" db:"sha256"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

var (
	ErrNotFound     = errors.New("media: not found")
	ErrEmptyPayload = errors.New("media: empty payload")
	ErrTooLarge     = errors.New("media: payload too large")
)
