package web

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) listFavorites(c *gin.Context) {
	sess := currentSession(c)
	ids, err := s.Favorites.List(c.Request.Context(), sess.User.ID, sess.Credentials())
	if err != nil {
		s.fail(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	ok(c, ids)
}

func (s *Server) addFavorite(c *gin.Context) {
	sess := currentSession(c)
	if err := s.Favorites.Add(c.Request.Context(), sess.User.ID, c.Param("listing"), sess.Credentials()); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) removeFavorite(c *gin.Context) {
	sess := currentSession(c)
	if err := s.Favorites.Remove(c.Request.Context(), sess.User.ID, c.Param("listing"), sess.Credentials()); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, nil)
}

func (s *Server) adminDashboard(c *gin.Context) {
	d, err := s.Dashboard.Build(c.Request.Context(), credentials(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, d)
}
