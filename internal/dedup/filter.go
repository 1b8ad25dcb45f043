package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Fingerprint identifies one inbound transport event.
type Fingerprint struct {
	MessageID   string
	Phone       string
	Kind        string
	Text        string
	PayloadSize int
}

// Config sets the dedup windows.
type Config struct {
	IDWindow   time.Duration
	HashWindow time.Duration
}

// Filter drops transport re-deliveries. Events with a message id are keyed by
// the id; others by a hash of phone, kind, text and payload size over a
// shorter window.
type Filter struct {
	cache Cache
	cfg   Config
}

func NewFilter(cache Cache, cfg Config) *Filter {
	if cfg.IDWindow <= 0 {
		cfg.IDWindow = 120 * time.Second
	}
	if cfg.HashWindow <= 0 {
		cfg.HashWindow = 30 * time.Second
	}
	return &Filter{cache: cache, cfg: cfg}
}

// Duplicate reports whether f was already seen inside its window.
func (d *Filter) Duplicate(ctx context.Context, f Fingerprint) (bool, error) {
	if f.MessageID != "" {
		return d.cache.Seen(ctx, key(f), d.cfg.IDWindow)
	}
	return d.cache.Seen(ctx, key(f), d.cfg.HashWindow)
}

// Forget drops the mark Duplicate left for f, letting a redelivery through.
func (d *Filter) Forget(ctx context.Context, f Fingerprint) error {
	return d.cache.Forget(ctx, key(f))
}

func key(f Fingerprint) string {
	if f.MessageID != "" {
		return "id:" + f.MessageID
	}
	return "h:" + compositeKey(f)
}

func compositeKey(f Fingerprint) string {
	h := sha256.New()
	for _, part := range []string{f.Phone, f.Kind, f.Text, strconv.Itoa(f.PayloadSize)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
