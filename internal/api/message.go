package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/middleware"
	"github.com/strandhq/strand/internal/service"
)

type MessageHandler struct {
	svc    *service.Messages
	logger *zap.Logger
}

func NewMessageHandler(svc *service.Messages, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

// createMessageRequest is the JSON body for POST /v1/messages.
//
// Content is the opaque serialized document — the server never inspects it.
// ThreadID set makes this a thread reply. The author fields are NOT part of
// the request: they come from the caller's token, never from the client.
type createMessageRequest struct {
	ChannelID uuid.UUID `json:"channel_id" binding:"required"`
	Content   string    `json:"content" binding:"required"`
	ImageURL  *string   `json:"image_url"`
	ThreadID  *int64    `json:"thread_id"`
}

// Create handles POST /v1/messages
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.GetIdentity(c)

	msg, err := h.svc.Create(c.Request.Context(), caller, service.CreateInput{
		ChannelID: req.ChannelID,
		ThreadID:  req.ThreadID,
		Content:   req.Content,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/messages?channel_id=&cursor=&limit=
//
// cursor is the opaque token from the previous page's next_cursor; a token
// we didn't issue (non-numeric) is a 400, not a silent first page.
func (h *MessageHandler) List(c *gin.Context) {
	channelID, err := uuid.Parse(c.Query("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel_id"})
		return
	}

	var cursor int64
	if raw := c.Query("cursor"); raw != "" {
		cursor, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || cursor <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
	}

	var limit int
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	caller := middleware.GetIdentity(c)

	page, err := h.svc.ListTopLevel(c.Request.Context(), caller, channelID, cursor, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

type updateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Update handles PUT /v1/messages/:id
func (h *MessageHandler) Update(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.GetIdentity(c)

	msg, err := h.svc.Update(c.Request.Context(), caller, messageID, req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}

// Thread handles GET /v1/messages/:id/thread
func (h *MessageHandler) Thread(c *gin.Context) {
	rootID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	caller := middleware.GetIdentity(c)

	view, err := h.svc.ResolveThread(c.Request.Context(), caller, rootID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

// ToggleReaction handles POST /v1/messages/:id/reactions
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req toggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	caller := middleware.GetIdentity(c)

	update, err := h.svc.ToggleReaction(c.Request.Context(), caller, messageID, req.Emoji)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, update)
}
