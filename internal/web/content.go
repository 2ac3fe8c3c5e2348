package web

import (
	"net/http"

	"horsemarket-web/internal/content"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func (s *Server) blogPosts(c *gin.Context) {
	posts, err := s.Content.Posts(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, posts)
}

func (s *Server) blogPost(c *gin.Context) {
	post, err := s.Content.Post(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, post)
}

func (s *Server) staticPage(c *gin.Context) {
	page, err := s.Content.StaticPage(c.Param("slug"))
	if errors.Is(err, content.ErrPageNotFound) {
		abort(c, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, page)
}

func (s *Server) events(c *gin.Context) {
	events, err := s.API.Events(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, events)
}

func (s *Server) products(c *gin.Context) {
	products, err := s.API.Products(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, products)
}
