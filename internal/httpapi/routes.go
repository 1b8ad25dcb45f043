package httpapi

import (
	"github.com/SandLosT/Attendant/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the owner API on g. Login and refresh are public; every
// other route needs an owner access token for the configured shop.
func (h Handlers) Register(g *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := g.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	protected := g.Group("")
	protected.Use(authMW)
	protected.Use(rbac.RequireOwner(h.Owner.ShopID)...)
	{
		protected.GET("/me", h.Me)

		protected.GET("/quotes", h.ListQuotes)
		protected.GET("/quotes/:id", h.GetQuote)
		protected.POST("/quotes/:id/approve", h.ApproveQuote)
		protected.POST("/quotes/:id/reject", h.RejectQuote)
		protected.POST("/quotes/:id/manual-close", h.ManualCloseQuote)

		protected.POST("/attendances/:phone/takeover", h.Takeover)
		protected.POST("/attendances/:phone/release", h.Release)
		protected.GET("/attendances/:phone/messages", h.Conversation)

		protected.GET("/agenda", h.ListAgenda)
		protected.GET("/agenda/open", h.OpenSlots)
		protected.POST("/agenda/block", h.BlockSlot)
		protected.POST("/agenda/unblock", h.UnblockSlot)
		protected.POST("/agenda/generate", h.GenerateSlots)

		protected.GET("/reports/summary", h.Summary)
	}
}
