package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"horsemarket-web/internal/logcontext"
	"horsemarket-web/internal/session"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	sessionKey      = "session"
	requestIDHeader = "X-Request-Id"
)

// requestContext tags the request context with a request id for every log line below it.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(requestIDHeader, requestID)

		ctx := logcontext.AppendCtx(c.Request.Context(), slog.String("requestId", requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(startTime)

		metrics.GetOrCreateCounter(fmt.Sprintf(`http_requests_total{route=%q,code="%d"}`, route, c.Writer.Status())).Inc()
		metrics.GetOrCreateHistogram(fmt.Sprintf(`http_request_duration_milliseconds{route=%q}`, route)).
			Update(float64(elapsed.Milliseconds()))

		logger.InfoContext(c.Request.Context(), "Handled request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"durationMs", elapsed.Milliseconds(),
		)
	}
}

// loadSession attaches the caller's session, if any, to the gin context.
func loadSession(manager *session.Manager, cookieName string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || id == "" {
			c.Next()
			return
		}

		s, err := manager.Load(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Set(sessionKey, s)
			ctx := logcontext.AppendCtx(c.Request.Context(), slog.String("sessionId", s.ID.String()))
			c.Request = c.Request.WithContext(ctx)
		case errors.Is(err, session.ErrNotFound):
			c.SetCookie(cookieName, "", -1, "/", "", false, true)
		default:
			logger.ErrorContext(c.Request.Context(), "Error loading session", "error", err)
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentSession(c).Authenticated() {
			abort(c, http.StatusUnauthorized, "sign in required")
			return
		}
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := currentSession(c)
		if !s.Authenticated() {
			abort(c, http.StatusUnauthorized, "sign in required")
			return
		}
		if !s.User.IsAdmin() {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}
