package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"expensemanager/internal/log"
)

// rateLimit applies the per-client limiter to write routes.
func (s *Server) rateLimit(c *gin.Context) {
	clientIP := s.securityDetector.ExtractClientIP(c.Request)
	if s.rateLimiter.Allow(clientIP) {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	log.FromContext(ctx).WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
		log.FieldClientIP, clientIP,
		log.FieldMethod, c.Request.Method,
		log.FieldPath, c.Request.URL.Path)

	c.Header("Retry-After", strconv.Itoa(s.rateLimiter.RetryAfter(clientIP)))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate_limited"})
}
