package rbac

import (
	"net/http"

	"github.com/SandLosT/Attendant/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireShop admits callers whose token belongs to shopID. A super_admin
// may act on any shop. An empty shopID only checks that a shop is present.
func RequireShop(shopID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil || id.ShopID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "shop_id required"})
			return
		}
		if shopID != "" && id.ShopID != shopID && !IsSuperAdmin(id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token belongs to another shop"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// super_admin bypasses all checks; unknown roles are always denied.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if IsSuperAdmin(role) {
			c.Next()
			return
		}
		if _, ok := allowedSet[role]; !ok || !Known(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireOwner is the chain every owner route of shopID uses.
func RequireOwner(shopID string) []gin.HandlerFunc {
	return []gin.HandlerFunc{RequireShop(shopID), RequireAnyRole(RoleOwner)}
}
