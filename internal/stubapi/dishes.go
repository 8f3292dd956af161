package stubapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultPopularCount = 10

func (s *Server) listDishes(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listDishes())
}

func (s *Server) createDish(c *gin.Context) {
	var in dishInput
	if !s.bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, s.store.createDish(in))
}

func (s *Server) updateDish(c *gin.Context) {
	var in dishInput
	if !s.bind(c, &in) {
		return
	}
	if in.ID <= 0 {
		fail(c, http.StatusBadRequest, "id is required")
		return
	}
	d, err := s.store.updateDish(in)
	if err != nil {
		storeError(c, err, "dish")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) getDish(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := s.store.dish(id)
	if err != nil {
		storeError(c, err, "dish")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) deleteDish(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.deleteDish(id); err != nil {
		storeError(c, err, "dish")
		return
	}
	c.Status(http.StatusOK)
}

// dishReaction serves PUT (add) and DELETE (remove) of likes and dislikes.
func (s *Server) dishReaction(v int8, add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		userID, ok := pathID(c, "userId")
		if !ok {
			return
		}
		if err := s.store.reactDish(id, userID, v, add); err != nil {
			storeError(c, err, "dish")
			return
		}
		c.Status(http.StatusOK)
	}
}

func (s *Server) popularDishes(c *gin.Context) {
	count, ok := queryInt(c, "count", defaultPopularCount)
	if !ok {
		return
	}
	categoryID, ok := queryInt(c, "categoryId", 0)
	if !ok {
		return
	}
	year, ok := queryInt(c, "year", 0)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.popular(count, int64(categoryID), year))
}

func (s *Server) searchDishes(c *gin.Context) {
	query := c.Query("query")
	by := strings.Split(c.DefaultQuery("by", "title"), ",")
	for _, field := range by {
		if field != "title" && field != "author" {
			fail(c, http.StatusBadRequest, "by must be title, author or both")
			return
		}
	}
	c.JSON(http.StatusOK, s.store.search(query, by))
}

func (s *Server) authorDishes(c *gin.Context) {
	authorID, ok := pathID(c, "authorId")
	if !ok {
		return
	}
	sortBy := c.DefaultQuery("sortBy", "year")
	switch sortBy {
	case "year", "likes", "name":
	default:
		fail(c, http.StatusBadRequest, "sortBy must be one of year, likes, name")
		return
	}
	c.JSON(http.StatusOK, s.store.authorDishes(authorID, sortBy))
}

func (s *Server) commonDishes(c *gin.Context) {
	userID, err1 := strconv.ParseInt(c.Query("userId"), 10, 64)
	friendID, err2 := strconv.ParseInt(c.Query("friendId"), 10, 64)
	if err1 != nil || err2 != nil {
		fail(c, http.StatusBadRequest, "userId and friendId are required integers")
		return
	}
	c.JSON(http.StatusOK, s.store.commonDishes(userID, friendID))
}
