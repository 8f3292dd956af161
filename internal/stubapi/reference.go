package stubapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Categories and pricing levels are fixed reference lists.

func (s *Server) listNamed(list []named) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, list)
	}
}

func (s *Server) getNamed(list []named, what string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		n, err := findNamed(list, id)
		if err != nil {
			storeError(c, err, what)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

func (s *Server) listAuthors(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listAuthors())
}

func (s *Server) createAuthor(c *gin.Context) {
	var in authorInput
	if !s.bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, s.store.createAuthor(in.Name))
}

func (s *Server) updateAuthor(c *gin.Context) {
	var in authorInput
	if !s.bind(c, &in) {
		return
	}
	if in.ID <= 0 {
		fail(c, http.StatusBadRequest, "id is required")
		return
	}
	a, err := s.store.updateAuthor(in.ID, in.Name)
	if err != nil {
		storeError(c, err, "author")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) getAuthor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := s.store.author(id)
	if err != nil {
		storeError(c, err, "author")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAuthor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.deleteAuthor(id); err != nil {
		storeError(c, err, "author")
		return
	}
	c.Status(http.StatusOK)
}
