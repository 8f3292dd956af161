package stubapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// listReviews returns every review unless count is given.
func (s *Server) listReviews(c *gin.Context) {
	count, ok := queryInt(c, "count", 0)
	if !ok {
		return
	}
	var dishID int64
	if raw := c.Query("dishId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fail(c, http.StatusBadRequest, "dishId must be positive")
			return
		}
		dishID = id
	}
	c.JSON(http.StatusOK, s.store.listReviews(dishID, count))
}

func (s *Server) createReview(c *gin.Context) {
	var in reviewInput
	if !s.bind(c, &in) {
		return
	}
	c.JSON(http.StatusCreated, s.store.createReview(in))
}

func (s *Server) updateReview(c *gin.Context) {
	var in reviewInput
	if !s.bind(c, &in) {
		return
	}
	if in.ReviewID <= 0 {
		fail(c, http.StatusBadRequest, "reviewId is required")
		return
	}
	r, err := s.store.updateReview(in)
	if err != nil {
		storeError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) getReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	r, err := s.store.review(id)
	if err != nil {
		storeError(c, err, "review")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) deleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.deleteReview(id); err != nil {
		storeError(c, err, "review")
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) reviewReaction(v int8, add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		userID, ok := pathID(c, "userId")
		if !ok {
			return
		}
		if err := s.store.reactReview(id, userID, v, add); err != nil {
			storeError(c, err, "review")
			return
		}
		c.Status(http.StatusOK)
	}
}
