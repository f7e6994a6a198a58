package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/middleware"
	"github.com/strandhq/strand/internal/repository"
)

// ChannelHandler is the channel-registry glue: create and list. The message
// engine only ever consults the registry through the scope check, so this
// stays thin.
type ChannelHandler struct {
	repo   repository.ChannelRepository
	logger *zap.Logger
}

func NewChannelHandler(repo repository.ChannelRepository, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{repo: repo, logger: logger}
}

// createChannelRequest is deliberately not models.Channel: the client names
// the channel, the server owns the ID, workspace, and timestamp.
type createChannelRequest struct {
	Name string `json:"name" binding:"required"`
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.GetIdentity(c)

	ch, err := h.repo.Create(c.Request.Context(), caller.WorkspaceID, req.Name)
	if err != nil {
		h.logger.Error("failed to create channel", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create channel"})
		return
	}

	c.JSON(http.StatusCreated, ch)
}

// List handles GET /v1/channels
func (h *ChannelHandler) List(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	channels, err := h.repo.ListByWorkspace(c.Request.Context(), caller.WorkspaceID)
	if err != nil {
		h.logger.Error("failed to list channels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
		return
	}

	// Repo returns make([]..., 0), so no channels serializes to [] not null.
	c.JSON(http.StatusOK, channels)
}
