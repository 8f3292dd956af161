package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Endpoint is one operation of the restaurant service. Path is a template
// whose {placeholders} are filled positionally by With.
type Endpoint struct {
	Method string
	Path   string
}

// Name is the metrics label, e.g. "GET /dishes/{id}".
func (e Endpoint) Name() string {
	return e.Method + " " + e.Path
}

// Expand substitutes args into the path placeholders in order. Missing
// arguments leave the placeholder in place.
func (e Endpoint) Expand(args ...any) string {
	var b strings.Builder
	rest := e.Path
	for _, arg := range args {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(rest[:open])
		fmt.Fprint(&b, arg)
		rest = rest[open+end+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// With starts a Call against e with the given path arguments.
func (e Endpoint) With(args ...any) Call {
	return Call{Endpoint: e, Args: args}
}

// Dishes.
var (
	ListDishes    = Endpoint{http.MethodGet, "/dishes"}
	CreateDish    = Endpoint{http.MethodPost, "/dishes"}
	UpdateDish    = Endpoint{http.MethodPut, "/dishes"}
	GetDish       = Endpoint{http.MethodGet, "/dishes/{id}"}
	DeleteDish    = Endpoint{http.MethodDelete, "/dishes/{id}"}
	LikeDish      = Endpoint{http.MethodPut, "/dishes/{id}/like/{userId}"}
	UnlikeDish    = Endpoint{http.MethodDelete, "/dishes/{id}/like/{userId}"}
	DislikeDish   = Endpoint{http.MethodPut, "/dishes/{id}/dislike/{userId}"}
	PopularDishes = Endpoint{http.MethodGet, "/dishes/popular"}
	SearchDishes  = Endpoint{http.MethodGet, "/dishes/search"}
	AuthorDishes  = Endpoint{http.MethodGet, "/dishes/author/{authorId}"}
	CommonDishes  = Endpoint{http.MethodGet, "/dishes/common"}
)

// Users.
var (
	ListUsers       = Endpoint{http.MethodGet, "/users"}
	CreateUser      = Endpoint{http.MethodPost, "/users"}
	UpdateUser      = Endpoint{http.MethodPut, "/users"}
	GetUser         = Endpoint{http.MethodGet, "/users/{id}"}
	DeleteUser      = Endpoint{http.MethodDelete, "/users/{id}"}
	AddFriend       = Endpoint{http.MethodPut, "/users/{id}/friends/{friendId}"}
	RemoveFriend    = Endpoint{http.MethodDelete, "/users/{id}/friends/{friendId}"}
	ListFriends     = Endpoint{http.MethodGet, "/users/{id}/friends"}
	CommonFriends   = Endpoint{http.MethodGet, "/users/{id}/friends/common/{otherId}"}
	Recommendations = Endpoint{http.MethodGet, "/users/{id}/recommendations"}
	Feed            = Endpoint{http.MethodGet, "/users/{id}/feed"}
)

// Reviews.
var (
	ListReviews     = Endpoint{http.MethodGet, "/reviews"}
	CreateReview    = Endpoint{http.MethodPost, "/reviews"}
	UpdateReview    = Endpoint{http.MethodPut, "/reviews"}
	GetReview       = Endpoint{http.MethodGet, "/reviews/{id}"}
	DeleteReview    = Endpoint{http.MethodDelete, "/reviews/{id}"}
	LikeReview      = Endpoint{http.MethodPut, "/reviews/{id}/like/{userId}"}
	UnlikeReview    = Endpoint{http.MethodDelete, "/reviews/{id}/like/{userId}"}
	DislikeReview   = Endpoint{http.MethodPut, "/reviews/{id}/dislike/{userId}"}
	UndislikeReview = Endpoint{http.MethodDelete, "/reviews/{id}/dislike/{userId}"}
)

// Reference data and authors.
var (
	ListCategories = Endpoint{http.MethodGet, "/categories"}
	GetCategory    = Endpoint{http.MethodGet, "/categories/{id}"}
	ListPricing    = Endpoint{http.MethodGet, "/pricing"}
	GetPricing     = Endpoint{http.MethodGet, "/pricing/{id}"}
	ListAuthors    = Endpoint{http.MethodGet, "/authors"}
	CreateAuthor   = Endpoint{http.MethodPost, "/authors"}
	UpdateAuthor   = Endpoint{http.MethodPut, "/authors"}
	GetAuthor      = Endpoint{http.MethodGet, "/authors/{id}"}
	DeleteAuthor   = Endpoint{http.MethodDelete, "/authors/{id}"}
)

// Catalog returns every endpoint the tool knows, grouped by resource.
func Catalog() []Endpoint {
	return []Endpoint{
		ListDishes, CreateDish, UpdateDish, GetDish, DeleteDish,
		LikeDish, UnlikeDish, DislikeDish, PopularDishes, SearchDishes, AuthorDishes, CommonDishes,
		ListUsers, CreateUser, UpdateUser, GetUser, DeleteUser,
		AddFriend, RemoveFriend, ListFriends, CommonFriends, Recommendations, Feed,
		ListReviews, CreateReview, UpdateReview, GetReview, DeleteReview,
		LikeReview, UnlikeReview, DislikeReview, UndislikeReview,
		ListCategories, GetCategory, ListPricing, GetPricing,
		ListAuthors, CreateAuthor, UpdateAuthor, GetAuthor, DeleteAuthor,
	}
}
