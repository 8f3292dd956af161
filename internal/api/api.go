// Package api describes the restaurant service surface: the endpoint
// catalog, typed calls used by virtual users and fixtures, and the error
// kinds those calls report.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/example/restarate/loadgen/internal/client"
)

// Call is one request against an Endpoint.
type Call struct {
	Endpoint Endpoint
	Args     []any
	Query    map[string]string
	Body     any
}

// WithQuery adds a query parameter.
func (c Call) WithQuery(key, value string) Call {
	q := make(map[string]string, len(c.Query)+1)
	for k, v := range c.Query {
		q[k] = v
	}
	q[key] = value
	c.Query = q
	return c
}

// WithBody sets the JSON body.
func (c Call) WithBody(body any) Call {
	c.Body = body
	return c
}

// Doer executes HTTP requests. *client.Client implements it.
type Doer interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// API issues calls against the restaurant service.
type API struct {
	doer Doer
}

// New wraps a Doer.
func New(d Doer) *API {
	return &API{doer: d}
}

// Send executes c and returns the raw response. Only transport failures are
// returned as errors; any status is a valid outcome.
func (a *API) Send(ctx context.Context, c Call) (*client.Response, error) {
	return a.doer.Do(ctx, client.Request{
		Endpoint:    c.Endpoint.Name(),
		Method:      c.Endpoint.Method,
		Path:        c.Endpoint.Expand(c.Args...),
		QueryParams: c.Query,
		Body:        c.Body,
	})
}

// expect executes c and turns any status outside codes into a *StatusError.
func (a *API) expect(ctx context.Context, c Call, codes ...int) (*client.Response, error) {
	resp, err := a.Send(ctx, c)
	if err != nil {
		return nil, err
	}
	if !resp.StatusIn(codes...) {
		return resp, &StatusError{
			Endpoint:   c.Endpoint.Name(),
			StatusCode: resp.StatusCode,
			Body:       truncate(resp.Text(), maxErrorBody),
		}
	}
	return resp, nil
}

// idField reads a numeric field from an object body.
func idField(c Call, resp *client.Response, field string) (int64, error) {
	v := resp.Get(field)
	if !v.Exists() || v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %s: missing %q", ErrMalformedResponse, c.Endpoint.Name(), field)
	}
	return v.Int(), nil
}

// idList reads field from every element of an array body. A single element
// without the field invalidates the whole list.
func idList(c Call, resp *client.Response, field string) ([]int64, error) {
	body := resp.JSON()
	if !body.IsArray() {
		return nil, fmt.Errorf("%w: %s: expected a JSON array", ErrMalformedResponse, c.Endpoint.Name())
	}
	items := body.Array()
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		v := item.Get(field)
		if !v.Exists() || v.Type != gjson.Number {
			return nil, fmt.Errorf("%w: %s: element %d has no numeric %q", ErrMalformedResponse, c.Endpoint.Name(), i, field)
		}
		ids = append(ids, v.Int())
	}
	return ids, nil
}

// DishIDs lists the ids of all dishes.
func (a *API) DishIDs(ctx context.Context) ([]int64, error) {
	c := ListDishes.With()
	resp, err := a.expect(ctx, c, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return idList(c, resp, "id")
}

// ReviewIDs lists the ids of all reviews.
func (a *API) ReviewIDs(ctx context.Context) ([]int64, error) {
	c := ListReviews.With()
	resp, err := a.expect(ctx, c, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return idList(c, resp, "reviewId")
}

// RegisterUser creates u and returns the id assigned by the service.
func (a *API) RegisterUser(ctx context.Context, u User) (int64, error) {
	c := CreateUser.With().WithBody(u)
	resp, err := a.expect(ctx, c, http.StatusOK, http.StatusCreated)
	if err != nil {
		return 0, err
	}
	return idField(c, resp, "id")
}

// RemoveUser deletes a user. 200 and 204 both count as deleted.
func (a *API) RemoveUser(ctx context.Context, userID int64) error {
	_, err := a.expect(ctx, DeleteUser.With(userID), http.StatusOK, http.StatusNoContent)
	return err
}

// UpdateProfile sends a partial user update.
func (a *API) UpdateProfile(ctx context.Context, p ProfileUpdate) error {
	_, err := a.expect(ctx, UpdateUser.With().WithBody(p), http.StatusOK)
	return err
}

// ViewDish fetches one dish.
func (a *API) ViewDish(ctx context.Context, dishID int64) error {
	_, err := a.expect(ctx, GetDish.With(dishID), http.StatusOK)
	return err
}

// LikeDish records a like of dishID by userID.
func (a *API) LikeDish(ctx context.Context, dishID, userID int64) error {
	_, err := a.expect(ctx, LikeDish.With(dishID, userID), http.StatusOK)
	return err
}

// UnlikeDish removes a like of dishID by userID.
func (a *API) UnlikeDish(ctx context.Context, dishID, userID int64) error {
	_, err := a.expect(ctx, UnlikeDish.With(dishID, userID), http.StatusOK)
	return err
}

// PostReview creates a review and returns its id. Only 201 counts as created.
func (a *API) PostReview(ctx context.Context, r Review) (int64, error) {
	c := CreateReview.With().WithBody(r)
	resp, err := a.expect(ctx, c, http.StatusCreated)
	if err != nil {
		return 0, err
	}
	return idField(c, resp, "reviewId")
}

// ViewReview fetches one review.
func (a *API) ViewReview(ctx context.Context, reviewID int64) error {
	_, err := a.expect(ctx, GetReview.With(reviewID), http.StatusOK)
	return err
}

// LikeReview marks a review useful on behalf of userID.
func (a *API) LikeReview(ctx context.Context, reviewID, userID int64) error {
	_, err := a.expect(ctx, LikeReview.With(reviewID, userID), http.StatusOK)
	return err
}

// UnlikeReview withdraws the like of userID.
func (a *API) UnlikeReview(ctx context.Context, reviewID, userID int64) error {
	_, err := a.expect(ctx, UnlikeReview.With(reviewID, userID), http.StatusOK)
	return err
}

// SearchUsers searches users by login and returns the ids found.
func (a *API) SearchUsers(ctx context.Context, query string) ([]int64, error) {
	c := ListUsers.With().WithQuery("query", query).WithQuery("by", "login")
	resp, err := a.expect(ctx, c, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return idList(c, resp, "id")
}

// AddFriend adds friendID to the friends of userID.
func (a *API) AddFriend(ctx context.Context, userID, friendID int64) error {
	_, err := a.expect(ctx, AddFriend.With(userID, friendID), http.StatusOK)
	return err
}

// RemoveFriend removes friendID from the friends of userID.
func (a *API) RemoveFriend(ctx context.Context, userID, friendID int64) error {
	_, err := a.expect(ctx, RemoveFriend.With(userID, friendID), http.StatusOK)
	return err
}

// Friends fetches the friend list of userID.
func (a *API) Friends(ctx context.Context, userID int64) error {
	_, err := a.expect(ctx, ListFriends.With(userID), http.StatusOK)
	return err
}

// Recommendations fetches dish recommendations for userID.
func (a *API) Recommendations(ctx context.Context, userID int64) error {
	_, err := a.expect(ctx, Recommendations.With(userID), http.StatusOK)
	return err
}

// Feed fetches the event feed of userID.
func (a *API) Feed(ctx context.Context, userID int64) error {
	_, err := a.expect(ctx, Feed.With(userID), http.StatusOK)
	return err
}

// Resource is a deletable entity collection.
type Resource string

// Resources purged between contract scenarios.
const (
	Dishes  Resource = "dishes"
	Users   Resource = "users"
	Authors Resource = "authors"
	Reviews Resource = "reviews"
)

type resourceEndpoints struct {
	list    Endpoint
	del     Endpoint
	idField string
}

var resourceTable = map[Resource]resourceEndpoints{
	Dishes:  {ListDishes, DeleteDish, "id"},
	Users:   {ListUsers, DeleteUser, "id"},
	Authors: {ListAuthors, DeleteAuthor, "id"},
	Reviews: {ListReviews, DeleteReview, "reviewId"},
}

// Purge lists every entity of r and deletes each one. It returns how many
// deletions succeeded. An empty collection is not an error.
func (a *API) Purge(ctx context.Context, r Resource) (int, error) {
	eps, ok := resourceTable[r]
	if !ok {
		return 0, fmt.Errorf("api: unknown resource %q", r)
	}

	c := eps.list.With()
	resp, err := a.expect(ctx, c, http.StatusOK)
	if err != nil {
		return 0, err
	}
	ids, err := idList(c, resp, eps.idField)
	if err != nil {
		return 0, err
	}

	deleted := 0
	var firstErr error
	for _, id := range ids {
		if _, err := a.expect(ctx, eps.del.With(id), http.StatusOK, http.StatusNoContent); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("deleting %s %s: %w", r, strconv.FormatInt(id, 10), err)
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}
