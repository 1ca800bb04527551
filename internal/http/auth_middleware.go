package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"indichess/internal/service"
)

const authSubjectKey = "auth_subject"

// AuthMiddleware valida el bearer token y deja el subject autenticado
// en el contexto del request. El motivo exacto del rechazo (token
// ausente, firma inválida, expirado) se loguea pero nunca se devuelve
// al cliente.
func AuthMiddleware(logger *zap.Logger, tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tokens not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			logger.Debug("request without bearer token", zap.String("path", c.Request.URL.Path))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		subject, err := tokens.Validate(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				logger.Debug("expired token", zap.String("path", c.Request.URL.Path))
			} else {
				logger.Warn("invalid token", zap.String("path", c.Request.URL.Path))
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			c.Abort()
			return
		}

		c.Set(authSubjectKey, subject)
		c.Next()
	}
}

// CurrentSubject obtiene el subject autenticado desde el contexto.
func CurrentSubject(c *gin.Context) (string, bool) {
	val, ok := c.Get(authSubjectKey)
	if !ok {
		return "", false
	}
	subject, ok := val.(string)
	return subject, ok && subject != ""
}
