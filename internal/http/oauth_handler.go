package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"indichess/internal/oauth"
	"indichess/internal/service"
)

const oauthStateCookie = "oauth_state"

// OAuthHandler maneja las rutas de login externo: redirige al
// proveedor y convierte el callback exitoso en un token local.
type OAuthHandler struct {
	logger      *zap.Logger
	registry    *oauth.Registry
	oauthServ   *service.OAuthService
	redirectURL string
}

func NewOAuthHandler(logger *zap.Logger, registry *oauth.Registry, oauthServ *service.OAuthService, redirectURL string) *OAuthHandler {
	return &OAuthHandler{
		logger:      logger,
		registry:    registry,
		oauthServ:   oauthServ,
		redirectURL: redirectURL,
	}
}

// Start maneja GET /oauth2/authorization/:provider redirigiendo al
// proveedor.
func (h *OAuthHandler) Start(c *gin.Context) {
	provider, err := h.registry.Lookup(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	state := uuid.NewString()
	c.SetCookie(oauthStateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// Callback maneja GET /oauth2/callback/:provider. Con identidad
// verificada emite el token local y redirige al frontend con el token
// como query parameter; cualquier falla corta el login completo.
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider, err := h.registry.Lookup(c.Param("provider"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		h.logger.Warn("provider returned error", zap.String("provider", provider.Name), zap.String("error", errParam))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed"})
		return
	}

	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != cookieState {
		h.logger.Warn("oauth state mismatch", zap.String("provider", provider.Name))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed"})
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed"})
		return
	}

	exchanged, err := provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Warn("code exchange failed", zap.String("provider", provider.Name), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed"})
		return
	}

	identity, err := provider.FetchIdentity(c.Request.Context(), exchanged)
	if err != nil {
		h.logger.Warn("userinfo fetch failed", zap.String("provider", provider.Name), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed"})
		return
	}

	token, err := h.oauthServ.LoginExternal(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, service.ErrExternalIdentity) {
			h.logger.Warn("external identity incomplete", zap.String("provider", provider.Name))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "external login failed"})
			return
		}
		h.logger.Error("external login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete login"})
		return
	}

	c.Redirect(http.StatusFound, h.redirectURL+"?token="+url.QueryEscape(token))
}
