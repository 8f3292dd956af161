package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/restarate/loadgen/internal/client"
	"github.com/example/restarate/loadgen/internal/config"
)

func newAPI(t *testing.T, handler http.Handler) *API {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := client.NewClient(config.TargetConfig{BaseURL: server.URL, Timeout: time.Second})
	require.NoError(t, err)
	return New(c)
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestEndpoint_Expand(t *testing.T) {
	tests := []struct {
		ep   Endpoint
		args []any
		want string
	}{
		{ListDishes, nil, "/dishes"},
		{GetDish, []any{int64(7)}, "/dishes/7"},
		{LikeDish, []any{3, 9}, "/dishes/3/like/9"},
		{CommonFriends, []any{1, 2}, "/users/1/friends/common/2"},
		{GetPricing, []any{"1.5"}, "/pricing/1.5"},
		{LikeReview, []any{5}, "/reviews/5/like/{userId}"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ep.Expand(tt.args...))
		})
	}
}

func TestEndpoint_Name(t *testing.T) {
	assert.Equal(t, "POST /reviews", CreateReview.Name())
	assert.Equal(t, "DELETE /users/{id}/friends/{friendId}", RemoveFriend.Name())
}

func TestCatalog_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, ep := range Catalog() {
		assert.False(t, seen[ep.Name()], "duplicate %s", ep.Name())
		seen[ep.Name()] = true
	}
	assert.Len(t, seen, 41)
}

func TestCall_WithQueryDoesNotAlias(t *testing.T) {
	base := PopularDishes.With().WithQuery("count", "5")
	a := base.WithQuery("year", "2023")
	assert.Len(t, base.Query, 1)
	assert.Len(t, a.Query, 2)
}

func TestKindOf(t *testing.T) {
	status := &StatusError{Endpoint: "GET /dishes", StatusCode: 500}
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"transport", fmt.Errorf("%w: refused", ErrTransport), KindTransport},
		{"status", status, KindStatus},
		{"wrapped status", fmt.Errorf("viewing: %w", status), KindStatus},
		{"malformed", fmt.Errorf("%w: no id", ErrMalformedResponse), KindMalformed},
		{"other", errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
	assert.Equal(t, 500, StatusOf(fmt.Errorf("x: %w", status)))
	assert.Equal(t, 0, StatusOf(errors.New("x")))
}

func TestRegisterUser(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantID   int64
		wantKind Kind
	}{
		{"ok 200", http.StatusOK, `{"id": 12, "login": "x"}`, 12, KindNone},
		{"ok 201", http.StatusCreated, `{"id": 13}`, 13, KindNone},
		{"server error", http.StatusInternalServerError, `{}`, 0, KindStatus},
		{"bad request", http.StatusBadRequest, `{"error": "email"}`, 0, KindStatus},
		{"missing id", http.StatusOK, `{"login": "x"}`, 0, KindMalformed},
		{"not json", http.StatusOK, `created`, 0, KindMalformed},
		{"string id", http.StatusOK, `{"id": "abc"}`, 0, KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/users", r.URL.Path)
				var u User
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&u))
				assert.Equal(t, "someone", u.Login)
				reply(tt.status, tt.body)(w, r)
			}))

			id, err := a.RegisterUser(context.Background(), User{Email: "a@b.c", Login: "someone", Name: "S", Birthday: "1990-01-01"})
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestRemoveUser(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNoContent} {
		a := newAPI(t, reply(status, ""))
		assert.NoError(t, a.RemoveUser(context.Background(), 4))
	}
	a := newAPI(t, reply(http.StatusNotFound, `{"error":"not found"}`))
	err := a.RemoveUser(context.Background(), 4)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestPostReview(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		a := newAPI(t, reply(http.StatusCreated, `{"reviewId": 31, "content": "ok"}`))
		id, err := a.PostReview(context.Background(), Review{Content: "ok", UserID: 1, DishID: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(31), id)
	})

	t.Run("200 is not created", func(t *testing.T) {
		a := newAPI(t, reply(http.StatusOK, `{"reviewId": 31}`))
		_, err := a.PostReview(context.Background(), Review{Content: "ok"})
		assert.ErrorIs(t, err, ErrUnexpectedStatus)
	})

	t.Run("no review id", func(t *testing.T) {
		a := newAPI(t, reply(http.StatusCreated, `{"id": 31}`))
		_, err := a.PostReview(context.Background(), Review{Content: "ok"})
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestIDLists(t *testing.T) {
	a := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dishes":
			reply(http.StatusOK, `[{"id": 1}, {"id": 2}]`)(w, r)
		case "/reviews":
			reply(http.StatusOK, `[{"reviewId": 5}, {"id": 6}]`)(w, r)
		case "/users":
			assert.Equal(t, "login", r.URL.Query().Get("by"))
			assert.Equal(t, "pasta", r.URL.Query().Get("query"))
			reply(http.StatusOK, `[{"id": 9}, {"id": 10}]`)(w, r)
		}
	}))
	ctx := context.Background()

	dishes, err := a.DishIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, dishes)

	_, err = a.ReviewIDs(ctx)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	users, err := a.SearchUsers(ctx, "pasta")
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 10}, users)
}

func TestIDLists_NonNumericID(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"string", `[{"id": 1}, {"id": "2"}]`},
		{"null", `[{"id": null}]`},
		{"object", `[{"id": {"value": 3}}]`},
		{"bool", `[{"id": true}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAPI(t, reply(http.StatusOK, tt.body))
			ids, err := a.DishIDs(context.Background())
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Nil(t, ids)
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "ok", 5, "ok"},
		{"ascii", "abcdef", 3, "abc..."},
		{"rune boundary", "Блюдо", 4, "Бл..."},
		{"inside a rune", "Блюдо", 5, "Бл..."},
		{"exact", "Блюдо", 10, "Блюдо"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestIDLists_NotArray(t *testing.T) {
	a := newAPI(t, reply(http.StatusOK, `{"id": 1}`))
	_, err := a.DishIDs(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTypedCalls_Paths(t *testing.T) {
	var mu sync.Mutex
	var got []string
	a := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Method+" "+r.URL.Path)
		mu.Unlock()
		reply(http.StatusOK, `[]`)(w, r)
	}))
	ctx := context.Background()

	require.NoError(t, a.ViewDish(ctx, 1))
	require.NoError(t, a.LikeDish(ctx, 1, 2))
	require.NoError(t, a.UnlikeDish(ctx, 1, 2))
	require.NoError(t, a.ViewReview(ctx, 3))
	require.NoError(t, a.LikeReview(ctx, 3, 2))
	require.NoError(t, a.UnlikeReview(ctx, 3, 2))
	require.NoError(t, a.AddFriend(ctx, 2, 8))
	require.NoError(t, a.RemoveFriend(ctx, 2, 8))
	require.NoError(t, a.Friends(ctx, 2))
	require.NoError(t, a.UpdateProfile(ctx, ProfileUpdate{ID: 2, Name: "N", Email: "e@x.y"}))
	require.NoError(t, a.Recommendations(ctx, 2))
	require.NoError(t, a.Feed(ctx, 2))

	assert.Equal(t, []string{
		"GET /dishes/1",
		"PUT /dishes/1/like/2",
		"DELETE /dishes/1/like/2",
		"GET /reviews/3",
		"PUT /reviews/3/like/2",
		"DELETE /reviews/3/like/2",
		"PUT /users/2/friends/8",
		"DELETE /users/2/friends/8",
		"GET /users/2/friends",
		"PUT /users",
		"GET /users/2/recommendations",
		"GET /users/2/feed",
	}, got)
}

func TestPurge(t *testing.T) {
	var mu sync.Mutex
	deleted := []string{}
	a := newAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/reviews":
			reply(http.StatusOK, `[{"reviewId": 1}, {"reviewId": 2}]`)(w, r)
		case r.Method == http.MethodGet && r.URL.Path == "/authors":
			reply(http.StatusOK, `[]`)(w, r)
		case r.Method == http.MethodDelete:
			mu.Lock()
			deleted = append(deleted, r.URL.Path)
			mu.Unlock()
			reply(http.StatusOK, ``)(w, r)
		}
	}))
	ctx := context.Background()

	n, err := a.Purge(ctx, Reviews)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"/reviews/1", "/reviews/2"}, deleted)

	n, err = a.Purge(ctx, Authors)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = a.Purge(ctx, Resource("menus"))
	assert.Error(t, err)
}
