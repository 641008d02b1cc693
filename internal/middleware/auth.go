package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SergeiKhy/shortify/internal/auth"
)

const identityContextKey = "auth_identity"

// Auth verifies bearer tokens from the Authorization header. Optional mode
// attaches the identity when a valid token is present and lets anonymous
// requests through; Required mode rejects missing or invalid tokens.
type Auth struct {
	tokens *auth.TokenManager
}

func NewAuth(tokens *auth.TokenManager) *Auth {
	return &Auth{tokens: tokens}
}

// Optional never aborts: shortening works anonymously, ownership is only
// attached when the caller proves it.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if identity, err := a.tokens.Verify(token); err == nil {
				c.Set(identityContextKey, identity)
			}
		}
		c.Next()
	}
}

// Required guards ownership-scoped endpoints.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization: Bearer token is required",
			})
			c.Abort()
			return
		}

		identity, err := a.tokens.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token is invalid or expired",
			})
			c.Abort()
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// IdentityFromContext returns the verified identity attached by Optional or
// Required, if any.
func IdentityFromContext(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(identityContextKey)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
