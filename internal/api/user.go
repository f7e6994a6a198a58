package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/middleware"
	"github.com/strandhq/strand/internal/repository"
)

type UserHandler struct {
	repo   repository.UserRepository
	logger *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, logger: logger}
}

// GetMe handles GET /v1/users/me — the authenticated caller's own profile.
// The client doesn't need to know its own UUID to ask.
func (h *UserHandler) GetMe(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	user, err := h.repo.GetByID(c.Request.Context(), caller.WorkspaceID, caller.UserID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	// A user present in the token but absent from the DB is a consistency
	// bug, not a server fault. 404, not 500.
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
