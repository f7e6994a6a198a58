package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit returns a per-user sliding-window limiter backed by Redis.
//
// Each request drops a timestamped member into a sorted set keyed by
// (class, user); members older than the window are pruned and the remaining
// cardinality is the request count. Sliding beats a fixed window here: no
// burst of 2×max straddling a window boundary.
//
// Redis errors fail OPEN — a limiter outage must not take the API down with
// it. The deny response is 429 and the caller is expected to surface it
// verbatim.
//
// Must run after AuthMiddleware: the key is the authenticated user.
func RateLimit(rdb *redis.Client, logger *zap.Logger, class string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := GetIdentity(c)

		key := "rl:" + class + ":" + identity.UserID.String()
		now := time.Now()
		cutoff := now.Add(-window)

		pipe := rdb.TxPipeline()
		pipe.ZRemRangeByScore(c.Request.Context(), key,
			"0", strconv.FormatInt(cutoff.UnixMicro(), 10))
		count := pipe.ZCard(c.Request.Context(), key)
		pipe.ZAdd(c.Request.Context(), key, redis.Z{
			Score:  float64(now.UnixMicro()),
			Member: uuid.NewString(),
		})
		pipe.Expire(c.Request.Context(), key, window)

		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logger.Warn("rate limiter unavailable, failing open",
				zap.String("class", class),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if count.Val() >= int64(max) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limited, slow down",
			})
			return
		}

		c.Next()
	}
}
