package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	if previous := currentSession(c); previous != nil {
		if err := s.Sessions.Logout(ctx, previous); err != nil {
			s.logger.WarnContext(ctx, "Error ending previous session", "error", err)
		}
	}

	sess, err := s.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.setSessionCookie(c, sess.ID.String(), int(s.Session.TTL().Seconds()))
	ok(c, sess.User)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.Sessions.Logout(c.Request.Context(), currentSession(c)); err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Error logging out", "error", err)
		abort(c, http.StatusInternalServerError, "could not end session")
		return
	}
	s.setSessionCookie(c, "", -1)
	ok(c, nil)
}

// me re-probes the identity endpoint so a revoked API session is noticed.
func (s *Server) me(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Authenticated() {
		abort(c, http.StatusUnauthorized, "not signed in")
		return
	}

	sess, err := s.Sessions.Refresh(c.Request.Context(), sess)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !sess.Authenticated() {
		abort(c, http.StatusUnauthorized, "session expired")
		return
	}
	ok(c, sess.User)
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Session.CookieName, value, maxAge, "/", "", s.Session.Secure, true)
}
