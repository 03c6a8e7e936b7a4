package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"passager/internal/service"
)

const sessionClaimsKey = "session_claims"

// SessionAuthMiddleware valida la cookie de sesión y guarda claims en el
// contexto.
func SessionAuthMiddleware(sessionServ *service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionServ == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
			c.Abort()
			return
		}

		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
			c.Abort()
			return
		}

		claims, err := sessionServ.Parse(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

// GetSessionClaims obtiene los claims de sesión desde el contexto.
func GetSessionClaims(c *gin.Context) (service.SessionClaims, bool) {
	val, ok := c.Get(sessionClaimsKey)
	if !ok {
		return service.SessionClaims{}, false
	}
	claims, ok := val.(service.SessionClaims)
	return claims, ok
}
