package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/SandLosT/Attendant/pkg/logger"

	"github.com/gin-gonic/gin"
)

// bearerToken pulls the token out of "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(c *gin.Context) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAccessToken admits requests carrying a valid access token. The
// caller identity goes on the request context and tags the request logger.
// Role checks live in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("access token refused", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), claims.UserID, claims.ShopID, claims.Role))
		logger.Enrich(c, logger.FromGin(c).With("user_id", claims.UserID))

		c.Next()
	}
}
