package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vaddzy/community-api/internal/middleware"
	"github.com/vaddzy/community-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextIdentityKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
