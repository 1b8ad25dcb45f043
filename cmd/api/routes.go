package main

import (
	"database/sql"

	"github.com/SandLosT/Attendant/internal/httpapi"
	"github.com/SandLosT/Attendant/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// Keep this file free of business logic. Handlers delegate to internal modules.

// registerPublicRoutes mounts health and the wppconnect webhook. The session
// and event path segments are optional; the event name may also come in the body.
func registerPublicRoutes(r *gin.Engine, db *sql.DB, webhook whatsapp.WebhookHandler) {
	r.GET("/healthz", pingDB(db))

	for _, path := range []string{"/webhook", "/webhook/:session", "/webhook/:session/:event"} {
		r.GET(path, webhook.Probe)
		r.POST(path, webhook.Handle)
	}
}

func registerOwnerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	h.Register(r.Group("/v1/owner"), authMW)
}
