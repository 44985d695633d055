package middleware

import (
	"net/http"

	"github.com/campfire-social/realtime/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests that do not carry a valid bearer token.
// On success the verified identity is stored in the gin context under
// "user_id" and "session_id".
func AuthMiddleware(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.Verify(auth.BearerToken(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_failed",
				"message": err.Error(),
			})
			return
		}

		c.Set("user_id", identity.UserID)
		c.Set("session_id", identity.SessionID)
		c.Next()
	}
}
