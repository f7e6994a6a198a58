package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/apperr"
)

// respondError maps an engine error kind to its HTTP status. ScopeViolation
// deliberately collapses into 403 with the same generic body as Forbidden —
// a caller outside the workspace doesn't get to learn whether the resource
// exists.
//
// Only internal errors get logged at error level; the rest are the caller's
// mistake, not ours.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)

	switch kind {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case apperr.KindScopeViolation, apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case apperr.KindInvalidThreadTarget:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread target"})
	case apperr.KindRateLimited:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limited, slow down"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
