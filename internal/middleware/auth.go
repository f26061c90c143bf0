package middleware

import (
	"net/http"
	"strings"

	"chemtrack/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the Authorization header and stores the claims in
// the context. Both "Token <jwt>" (what the desktop and web clients send)
// and "Bearer <jwt>" are accepted.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || (parts[0] != "Token" && parts[0] != "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authorization header."})
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(parts[1], secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token."})
			c.Abort()
			return
		}

		c.Set(auth.ClaimsKey, claims)
		c.Next()
	}
}

// CurrentUser returns the claims set by AuthRequired.
func CurrentUser(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(auth.ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}
