package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/service"
	appErrors "github.com/vaddzy/community-api/pkg/errors"
	"github.com/vaddzy/community-api/pkg/response"
)

// ContextIdentityKey is the gin context key storing JWT claims.
const ContextIdentityKey = "currentIdentity"

// JWT protects routes by requiring a valid access token.
func JWT(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block. Anonymous
// readers take this path for the public feed.
func OptionalJWT(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := sessions.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextIdentityKey, claims)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, falling back
// to the access_token query parameter for websocket upgrades, which cannot
// carry custom headers from browsers.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1], true
		}
		return "", false
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}
