package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/SandLosT/Attendant/internal/dedup"

	"github.com/gin-gonic/gin"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (d *recordingDispatcher) HandleInbound(ctx context.Context, ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
	return d.err
}

func newWebhookRouter(h WebhookHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.Handle)
	r.POST("/webhook/:session/:event", h.Handle)
	r.GET("/webhook", h.Probe)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookDispatchesOnceForRedelivery(t *testing.T) {
	d := &recordingDispatcher{}
	filter := dedup.NewFilter(dedup.NewMemoryCache(), dedup.Config{})
	r := newWebhookRouter(WebhookHandler{Dispatcher: d, Filter: filter})

	body := `{"event":"onmessage","id":"M1","from":"5511999990000@c.us","body":"oi"}`
	if w := post(r, "/webhook", body); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := post(r, "/webhook", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["info"] != "duplicate ignored" {
		t.Fatalf("expected duplicate, got %v", resp)
	}
	if len(d.events) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(d.events))
	}
}

func TestWebhookDropsSelfAndIgnoredEvents(t *testing.T) {
	d := &recordingDispatcher{}
	r := newWebhookRouter(WebhookHandler{Dispatcher: d})

	post(r, "/webhook", `{"event":"onmessage","from":"5511999990000@c.us","body":"oi","fromMe":true}`)
	post(r, "/webhook", `{"event":"qrcode","qrcode":"data:image/png;base64,AAAA"}`)
	post(r, "/webhook/shop/onack", `{"from":"5511999990000@c.us","body":"oi"}`)
	post(r, "/webhook", `{"from":"5511999990000@c.us","type":"sticker"}`)

	if len(d.events) != 0 {
		t.Fatalf("expected no dispatch, got %d", len(d.events))
	}
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	r := newWebhookRouter(WebhookHandler{Dispatcher: &recordingDispatcher{}})
	if w := post(r, "/webhook", "{"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestWebhookReportsDispatchFailure(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("boom")}
	r := newWebhookRouter(WebhookHandler{Dispatcher: d})
	w := post(r, "/webhook", `{"from":"5511999990000@c.us","body":"oi"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestWebhookRedeliveryAfterFailureIsProcessed(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("db down")}
	filter := dedup.NewFilter(dedup.NewMemoryCache(), dedup.Config{})
	r := newWebhookRouter(WebhookHandler{Dispatcher: d, Filter: filter})

	body := `{"event":"onmessage","id":"M9","from":"5511999990000@c.us","body":"oi"}`
	if w := post(r, "/webhook", body); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()

	w := post(r, "/webhook", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["ok"] != true {
		t.Fatalf("expected redelivery to be processed, got %v", resp)
	}
	if len(d.events) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(d.events))
	}

	if w := post(r, "/webhook", body); w.Body.String() != `{"info":"duplicate ignored"}` {
		t.Fatalf("expected duplicate after success, got %s", w.Body.String())
	}
}

func TestWebhookProbe(t *testing.T) {
	r := newWebhookRouter(WebhookHandler{})
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
