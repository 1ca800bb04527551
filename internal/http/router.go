package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"indichess/internal/service"
)

// NewRouter configura el router de Gin. Las rutas públicas (raíz,
// registro, login y entrada OAuth2) se registran sin el middleware de
// autenticación; todo lo demás lo exige.
func NewRouter(
	logger *zap.Logger,
	tokens *service.TokenService,
	authH *AuthHandler,
	userH *UserHandler,
	oauthH *OAuthHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)

	if oauthH != nil {
		ext := r.Group("/oauth2")
		ext.GET("/authorization/:provider", oauthH.Start)
		ext.GET("/callback/:provider", oauthH.Callback)
	}

	users := r.Group("/users", AuthMiddleware(logger, tokens))
	users.GET("/me", userH.Me)

	return r
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
