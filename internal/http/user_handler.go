package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"indichess/internal/repository"
)

// UserHandler expone endpoints de usuarios protegidos por el
// middleware de autenticación.
type UserHandler struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUserHandler(logger *zap.Logger, users repository.UserRepository) *UserHandler {
	return &UserHandler{
		logger: logger,
		users:  users,
	}
}

// Me maneja GET /users/me devolviendo la cuenta del subject
// autenticado.
func (h *UserHandler) Me(c *gin.Context) {
	subject, ok := CurrentSubject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get current user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
