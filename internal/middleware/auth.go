package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// BearerToken returns the credential from the Authorization header, with an
// optional Bearer prefix stripped. Empty when the header is absent.
func BearerToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
