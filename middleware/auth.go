package middleware

import (
	"saas-knowledge-indexer/internal/auth"
	"saas-knowledge-indexer/utils"

	"github.com/gin-gonic/gin"
)

type AuthMiddleware struct {
	issuer *auth.TokenIssuer
}

func NewAuthMiddleware(issuer *auth.TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer}
}

// RequireServiceToken validates the bearer token and stores the caller's
// claims on the context.
func (a *AuthMiddleware) RequireServiceToken() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authentication token is required")
			c.Abort()
			return
		}

		claims, err := a.issuer.ValidateServiceToken(tokenString)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("organization_id", claims.OrganizationID)
		c.Set("role", claims.Role)
		c.Set("claims", claims)

		c.Next()
	})
}

// RequireOrganizationScope rejects requests whose token is scoped to a
// different organization than the :orgId route param. Admin tokens pass.
func (a *AuthMiddleware) RequireOrganizationScope() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		orgID := c.Param("orgId")
		if orgID == "" {
			utils.RespondWithBadRequest(c, "Organization id is required", nil)
			c.Abort()
			return
		}

		role := GetRole(c)
		if role != auth.RoleAdmin && GetOrganizationID(c) != orgID {
			utils.RespondWithForbidden(c, "Token is not scoped to this organization")
			c.Abort()
			return
		}

		c.Next()
	})
}

// Helper function to get organization ID from context
func GetOrganizationID(c *gin.Context) string {
	if orgID, exists := c.Get("organization_id"); exists {
		if id, ok := orgID.(string); ok {
			return id
		}
	}
	return ""
}

// Helper function to get role from context
func GetRole(c *gin.Context) string {
	if role, exists := c.Get("role"); exists {
		if r, ok := role.(string); ok {
			return r
		}
	}
	return ""
}
