package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	audit "navo-system/internal/services/audit/handler"
	"navo-system/internal/utils"
)

const claimsContextKey = "auth_claims"

// JWTAuth verifies the bearer token and injects the admin identity into the
// request context. Fails closed: no valid actor, no access.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing bearer token",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// CurrentActor builds the audit actor from the verified claims and the
// request's client IP.
func CurrentActor(c *gin.Context) (audit.Actor, bool) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return audit.Actor{}, false
	}
	claims, ok := value.(*utils.Claims)
	if !ok {
		return audit.Actor{}, false
	}
	return audit.AdminActor(claims.AdminID, claims.Name, claims.Email, c.ClientIP()), true
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
