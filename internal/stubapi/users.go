package stubapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listUsers(c *gin.Context) {
	by := c.DefaultQuery("by", "login")
	if by != "login" && by != "name" {
		fail(c, http.StatusBadRequest, "by must be login or name")
		return
	}
	c.JSON(http.StatusOK, s.store.listUsers(c.Query("query"), by))
}

func (s *Server) createUser(c *gin.Context) {
	var in userInput
	if !s.bind(c, &in) {
		return
	}
	c.JSON(http.StatusOK, s.store.createUser(in))
}

// updateUser merges the supplied fields into the stored user, then
// validates the result. Virtual users send only id, name and email.
func (s *Server) updateUser(c *gin.Context) {
	var patch userInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if patch.ID <= 0 {
		fail(c, http.StatusBadRequest, "id is required")
		return
	}
	merged, err := s.store.mergeUser(patch)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	if err := s.validate.Struct(merged); err != nil {
		fail(c, http.StatusBadRequest, describe(err))
		return
	}
	u, err := s.store.updateUser(merged)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := s.store.user(id)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.deleteUser(id); err != nil {
		storeError(c, err, "user")
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) addFriend(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	friendID, ok := pathID(c, "friendId")
	if !ok {
		return
	}
	if err := s.store.addFriend(id, friendID); err != nil {
		storeError(c, err, "user")
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) removeFriend(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	friendID, ok := pathID(c, "friendId")
	if !ok {
		return
	}
	if err := s.store.removeFriend(id, friendID); err != nil {
		storeError(c, err, "user")
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) listFriends(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	friends, err := s.store.friends(id)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (s *Server) commonFriends(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	otherID, ok := pathID(c, "otherId")
	if !ok {
		return
	}
	common, err := s.store.commonFriends(id, otherID)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, common)
}

func (s *Server) recommendations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dishes, err := s.store.recommendations(id)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, dishes)
}

func (s *Server) feed(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := s.store.feed(id)
	if err != nil {
		storeError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, events)
}
