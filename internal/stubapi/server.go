// Package stubapi is an in-memory stand-in for the restaurant service. It
// serves every endpoint the load generator and the contract suite call, with
// the documented status codes, and keeps all state in process memory.
package stubapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/generator"
)

// Server is the stub service.
type Server struct {
	store    *store
	validate *validator.Validate
	engine   *gin.Engine
	log      *zap.Logger
}

// New builds a stub with an empty store. A nil logger disables logging.
func New(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:    newStore(),
		validate: newValidator(),
		engine:   gin.New(),
		log:      log,
	}
	s.engine.Use(recovery(log), accessLog(log))
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody{Error: "no such endpoint"})
	})
	s.routes()
	return s
}

// Handler returns the HTTP handler of the stub.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Seed fills the store with authors and dishes drawn from f, for local smoke
// runs where the load generator needs fixtures to work with.
func (s *Server) Seed(f *generator.Faker, dishes int) {
	authors := make([]named, 0, 3)
	for range 3 {
		authors = append(authors, s.store.createAuthor(f.AuthorName()))
	}
	for i := range dishes {
		d := f.Dish(len(categories))
		s.store.createDish(dishInput{
			Name:        d.Name,
			Description: d.Description,
			ReleaseDate: d.ReleaseDate,
			Weight:      d.Weight,
			Pricing:     &ref{ID: d.Pricing.ID},
			Categories:  []ref{{ID: d.Categories[0].ID}},
			Authors:     []ref{{ID: authors[i%len(authors)].ID}},
		})
	}
	s.log.Info("store seeded", zap.Int("dishes", dishes), zap.Int("authors", len(authors)))
}

func (s *Server) routes() {
	dishes := s.engine.Group("/dishes")
	dishes.GET("", s.listDishes)
	dishes.POST("", s.createDish)
	dishes.PUT("", s.updateDish)
	dishes.GET("/popular", s.popularDishes)
	dishes.GET("/search", s.searchDishes)
	dishes.GET("/common", s.commonDishes)
	dishes.GET("/author/:authorId", s.authorDishes)
	dishes.GET("/:id", s.getDish)
	dishes.DELETE("/:id", s.deleteDish)
	dishes.PUT("/:id/like/:userId", s.dishReaction(like, true))
	dishes.DELETE("/:id/like/:userId", s.dishReaction(like, false))
	dishes.PUT("/:id/dislike/:userId", s.dishReaction(dislike, true))
	dishes.DELETE("/:id/dislike/:userId", s.dishReaction(dislike, false))

	users := s.engine.Group("/users")
	users.GET("", s.listUsers)
	users.POST("", s.createUser)
	users.PUT("", s.updateUser)
	users.GET("/:id", s.getUser)
	users.DELETE("/:id", s.deleteUser)
	users.GET("/:id/friends", s.listFriends)
	users.PUT("/:id/friends/:friendId", s.addFriend)
	users.DELETE("/:id/friends/:friendId", s.removeFriend)
	users.GET("/:id/friends/common/:otherId", s.commonFriends)
	users.GET("/:id/recommendations", s.recommendations)
	users.GET("/:id/feed", s.feed)

	reviews := s.engine.Group("/reviews")
	reviews.GET("", s.listReviews)
	reviews.POST("", s.createReview)
	reviews.PUT("", s.updateReview)
	reviews.GET("/:id", s.getReview)
	reviews.DELETE("/:id", s.deleteReview)
	reviews.PUT("/:id/like/:userId", s.reviewReaction(like, true))
	reviews.DELETE("/:id/like/:userId", s.reviewReaction(like, false))
	reviews.PUT("/:id/dislike/:userId", s.reviewReaction(dislike, true))
	reviews.DELETE("/:id/dislike/:userId", s.reviewReaction(dislike, false))

	s.engine.GET("/categories", s.listNamed(categories))
	s.engine.GET("/categories/:id", s.getNamed(categories, "category"))
	s.engine.GET("/pricing", s.listNamed(pricing))
	s.engine.GET("/pricing/:id", s.getNamed(pricing, "pricing category"))

	authors := s.engine.Group("/authors")
	authors.GET("", s.listAuthors)
	authors.POST("", s.createAuthor)
	authors.PUT("", s.updateAuthor)
	authors.GET("/:id", s.getAuthor)
	authors.DELETE("/:id", s.deleteAuthor)
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

// storeError maps a store error onto a response. what names the entity in
// the message.
func storeError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, errNotFound):
		fail(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, errConflict):
		fail(c, http.StatusConflict, what+" already has a reaction from this user")
	case errors.Is(err, errInvalid):
		fail(c, http.StatusBadRequest, what+": "+err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses a non-negative integer path parameter. Zero parses and is
// left to the lookup, which answers 404.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		fail(c, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter, returning def when
// absent.
func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		fail(c, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// bind decodes the JSON body into v and validates it.
func (s *Server) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, http.StatusBadRequest, "malformed body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		fail(c, http.StatusBadRequest, describe(err))
		return false
	}
	return true
}
