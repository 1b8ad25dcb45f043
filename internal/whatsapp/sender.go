package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Sender delivers text to a customer.
type Sender interface {
	SendMessage(ctx context.Context, phone, text string) error
}

// Config addresses a wppconnect-server session.
type Config struct {
	BaseURL string
	Session string
	Token   string
	Timeout time.Duration
}

var ErrNotConfigured = errors.New("whatsapp: sender not configured")

// WPPConnectSender calls POST {base}/{session}/send-message.
type WPPConnectSender struct {
	cfg  Config
	http *http.Client
}

func NewWPPConnectSender(cfg Config) *WPPConnectSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WPPConnectSender{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type sendPayload struct {
	Phone        []string       `json:"phone"`
	IsGroup      bool           `json:"isGroup"`
	IsNewsletter bool           `json:"isNewsletter"`
	IsLid        bool           `json:"isLid"`
	Message      string         `json:"message"`
	Options      map[string]any `json:"options"`
}

func (s *WPPConnectSender) SendMessage(ctx context.Context, phone, text string) error {
	if s.cfg.BaseURL == "" || s.cfg.Session == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(sendPayload{
		Phone:   []string{phone},
		Message: text,
		Options: map[string]any{},
	})
	if err != nil {
		return err
	}
	url := s.cfg.BaseURL + "/" + s.cfg.Session + "/send-message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Sent is one recorded outbound message.
type Sent struct {
	Phone string
	Text  string
}

// MemorySender records messages instead of delivering them. Useful for tests
// and for running without a gateway.
type MemorySender struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func NewMemorySender() *MemorySender { return &MemorySender{} }

func (m *MemorySender) SendMessage(ctx context.Context, phone, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, Sent{Phone: phone, Text: text})
	return nil
}

func (m *MemorySender) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent message to phone.
func (m *MemorySender) Last(phone string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Phone == phone {
			return m.sent[i].Text, true
		}
	}
	return "", false
}
