package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxRequests int           // Max requests per client IP
	Window      time.Duration // Time window for the limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 200,              // 200 requests
		Window:      15 * time.Minute, // per 15 minutes
	}
}

// NewRateLimiter builds a fixed-window limiter on an in-memory store. Zero
// fields take the defaults. The store drops expired windows on its own.
func NewRateLimiter(config RateLimitConfig) *limiter.Limiter {
	defaults := DefaultRateLimitConfig()
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}

	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "api",
		CleanUpInterval: time.Minute,
	})
	return limiter.New(store, limiter.Rate{
		Period: config.Window,
		Limit:  int64(config.MaxRequests),
	})
}

// RateLimit rejects clients that exceed the limiter's budget with 429.
// Clients are keyed by c.ClientIP(), which only honours forwarding headers
// from the proxies passed to the engine's SetTrustedProxies.
func RateLimit(l *limiter.Limiter, logger *logrus.Logger) gin.HandlerFunc {
	return mgin.NewMiddleware(l,
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			retryAfter := int64(1)
			reset, err := strconv.ParseInt(c.Writer.Header().Get("X-RateLimit-Reset"), 10, 64)
			if err == nil {
				if wait := reset - time.Now().Unix(); wait > 0 {
					retryAfter = wait
				}
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": fmt.Sprintf("Too many requests. Please try again in %d seconds", retryAfter),
			})
		}),
		// The memory store never fails; a failing store lets the request through
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.WithError(err).Error("Rate limiter store failed")
			c.Next()
		}),
	)
}
