package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// bodyLimitBytes matches the ~1MB request body ceiling every deployment
// of this gateway enforces at the transport edge.
const bodyLimitBytes = 1 << 20

// Per-IP rate limiters, defense-in-depth ahead of the gateway's own
// per-principal limiter.
var (
	ipLimiters = make(map[string]*rate.Limiter)
	ipMu       sync.RWMutex
)

func getIPLimiter(ip string) *rate.Limiter {
	ipMu.RLock()
	limiter, exists := ipLimiters[ip]
	ipMu.RUnlock()
	if exists {
		return limiter
	}

	ipMu.Lock()
	defer ipMu.Unlock()
	if limiter, exists := ipLimiters[ip]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(20), 50)
	ipLimiters[ip] = limiter
	return limiter
}

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ipMu.Lock()
			ipLimiters = make(map[string]*rate.Limiter)
			ipMu.Unlock()
		}
	}()
}

// CORSMiddleware handles cross-origin resource sharing for the SPA
// frontend this gateway serves JSON and websocket traffic to.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware stamps every request with a correlation id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("RequestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// BodyLimitMiddleware rejects request bodies past bodyLimitBytes before
// any handler attempts to bind them.
func BodyLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimitBytes)
		c.Next()
	}
}

// RateLimitMiddleware is the per-IP token bucket ahead of the gateway's
// per-principal limiter.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !getIPLimiter(ip).Allow() {
			log.Printf("[RATE_LIMIT] ip %s exceeded per-ip rate limit", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// TimeoutMiddleware bounds how long a handler may run before the
// connection is aborted with 504.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		finished := make(chan struct{})
		panicChan := make(chan any, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					panicChan <- p
				}
			}()
			c.Next()
			close(finished)
		}()

		select {
		case p := <-panicChan:
			log.Printf("[PANIC] %v", p)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		case <-finished:
		case <-ctx.Done():
			log.Printf("[TIMEOUT] %s %s", c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "request timeout"})
		}
	}
}

// RequestLogger logs every request's method, path, status, and latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		requestID := c.GetString("RequestID")
		if len(requestID) > 8 {
			requestID = requestID[:8]
		}
		log.Printf("[API] %s | %s %s | %d | %v | %s",
			requestID, method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
