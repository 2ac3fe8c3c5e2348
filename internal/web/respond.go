package web

import (
	"net/http"

	"horsemarket-web/internal/api"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// fail maps an upstream error to a response. Client errors reported by the
// API are passed through; anything else is a bad gateway.
func (s *Server) fail(c *gin.Context, err error) {
	if code, isResponse := api.StatusCode(err); isResponse && code >= 400 && code < 500 {
		var respErr *api.ResponseError
		errors.As(err, &respErr)
		message := respErr.Message
		if message == "" {
			message = http.StatusText(code)
		}
		abort(c, code, message)
		return
	}

	s.logger.ErrorContext(c.Request.Context(), "Error calling marketplace API", "error", err, "route", c.FullPath())
	abort(c, http.StatusBadGateway, "marketplace service unavailable")
}
