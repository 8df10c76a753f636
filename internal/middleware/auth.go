package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/services"
	"go.uber.org/zap"
)

// AuthMiddleware validates the bearer credential on the request and stores
// its claims in the context under "claims".
func AuthMiddleware(credentials *services.CredentialService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := credentials.Parse(parts[1])
		if err != nil {
			observability.Logger().Debug("credential rejected", zap.Error(err))
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "invalid credential"})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}

// ClaimsFromContext returns the credential claims stored by AuthMiddleware
func ClaimsFromContext(c *gin.Context) (*models.CredentialClaims, bool) {
	value, exists := c.Get("claims")
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.CredentialClaims)
	return claims, ok
}
