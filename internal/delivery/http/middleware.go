package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/davidfdzmorilla/webdev-ecommerce/internal/metrics"
	"github.com/davidfdzmorilla/webdev-ecommerce/internal/pkg/logger"
)

const (
	UserIDHeader = "X-User-ID"
	userIDKey    = "userID"
)

// CORS allows the storefront to call the API. An empty origin list allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", UserIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if userID == "" {
			RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing "+UserIDHeader+" header"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Instrument records request counts and latency per route template.
func Instrument(m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start)) / float64(time.Millisecond))
	}
}

// LogErrors writes errors attached to the context after the handler ran.
func LogErrors(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		for _, e := range c.Errors {
			log.Error("Request failed", "method", c.Request.Method, "route", c.FullPath(), "status", c.Writer.Status(), "error", e.Err)
		}
	}
}
