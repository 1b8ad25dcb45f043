package whatsapp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/SandLosT/Attendant/internal/dedup"
	"github.com/SandLosT/Attendant/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Dispatcher handles a normalized inbound message.
type Dispatcher interface {
	HandleInbound(ctx context.Context, ev Event) error
}

// WebhookHandler converts gateway webhooks to Events and hands them to the
// dispatcher. No business logic here.
type WebhookHandler struct {
	Dispatcher Dispatcher
	Filter     *dedup.Filter
	// Timeout bounds processing of one event; it survives client disconnects.
	Timeout time.Duration
}

var ignoredEvents = map[string]bool{
	"qrcode":            true,
	"status-find":       true,
	"onack":             true,
	"onpresencechanged": true,
	"onstatechange":     true,
	"onrevokedmessage":  true,
}

func (h WebhookHandler) Probe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "webhook-ok"})
}

func (h WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Dispatcher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dispatcher not configured"})
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	body, err := ParseBody(raw)
	if err != nil {
		log.Warn("webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	name := strings.ToLower(firstNonEmpty(str(body["event"]), c.Param("event")))
	if ignoredEvents[name] || body["qrcode"] != nil {
		c.JSON(http.StatusOK, gin.H{"info": "event ignored", "event": name})
		return
	}

	ev := Normalize(body)
	switch {
	case ev.FromMe:
		c.JSON(http.StatusOK, gin.H{"info": "self message ignored"})
		return
	case ev.Phone == "" || ev.Kind == KindOther:
		c.JSON(http.StatusOK, gin.H{"info": "event ignored", "event": name})
		return
	}

	fp := dedup.Fingerprint{
		MessageID:   ev.MessageID,
		Phone:       ev.Phone,
		Kind:        string(ev.Kind),
		Text:        ev.Text,
		PayloadSize: ev.PayloadSize(),
	}
	if h.Filter != nil {
		dup, err := h.Filter.Duplicate(c.Request.Context(), fp)
		if err != nil {
			// fail open
			log.Warn("dedup check failed", "err", err)
		} else if dup {
			c.JSON(http.StatusOK, gin.H{"info": "duplicate ignored"})
			return
		}
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), timeout)
	defer cancel()
	ctx = logger.With(ctx, log.With("phone", ev.Phone, "kind", string(ev.Kind)))

	if err := h.Dispatcher.HandleInbound(ctx, ev); err != nil {
		log.Error("inbound processing failed", "phone", ev.Phone, "err", err)
		if h.Filter != nil {
			// a redelivery must be processed again
			if ferr := h.Filter.Forget(context.WithoutCancel(c.Request.Context()), fp); ferr != nil {
				log.Warn("dedup forget failed", "err", ferr)
			}
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
