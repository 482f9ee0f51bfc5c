package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

// AuthService guards the dashboard API with TOTP-based login. JWT
// issuance and the OAuth consent flows live outside this service.
type AuthService struct {
	logger     *zap.Logger
	totpSecret string
}

func NewAuthService(logger *zap.Logger, totpSecret string) *AuthService {
	return &AuthService{
		logger:     logger,
		totpSecret: totpSecret,
	}
}

func (a *AuthService) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Spotlight Dashboard",
		AccountName: "admin",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), nil
}

func (a *AuthService) ValidateToken(token string) bool {
	valid := totp.Validate(token, a.totpSecret)
	if valid {
		a.logger.Info("TOTP token validation successful")
	} else {
		a.logger.Warn("TOTP token validation failed")
	}
	return valid
}

func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip auth for health and login endpoints
		path := c.Request.URL.Path
		if path == "/health" || path == "/api/v1/auth/login" {
			c.Next()
			return
		}

		token, err := c.Cookie("auth_token")
		if err != nil || !a.isValidSession(token) {
			a.rejectUnauthenticated(c)
			return
		}

		c.Next()
	}
}

func (a *AuthService) isValidSession(token string) bool {
	// Simple implementation - in production use proper session management
	return len(token) > 10
}

func (a *AuthService) rejectUnauthenticated(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api") {
		c.JSON(401, gin.H{"error": "Authentication required"})
		c.Abort()
		return
	}

	c.Redirect(302, "/login")
	c.Abort()
}

func (a *AuthService) CreateSession() string {
	// Simple implementation - in production use proper session management
	return fmt.Sprintf("session_%d", time.Now().Unix())
}
