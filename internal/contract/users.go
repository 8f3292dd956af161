package contract

import (
	"context"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/restarate/loadgen/internal/api"
)

var userResources = []api.Resource{api.Users}

func userScenarios() []Scenario {
	return []Scenario{
		{Name: "users/create-and-get", Resources: userResources, Run: userCreateAndGet},
		{Name: "users/friends", Resources: userResources, Run: userFriends},
		{Name: "users/common-friends", Resources: userResources, Run: userCommonFriends},
		{Name: "users/validation", Resources: userResources, Run: userValidation},
		{Name: "users/recommendations", Resources: userResources, Run: userRecommendations},
		{Name: "users/feed", Resources: userResources, Run: userFeed},
		{Name: "users/update", Resources: userResources, Run: userUpdate},
		{Name: "users/delete", Resources: userResources, Run: userDelete},
	}
}

func userCreateAndGet(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateUser, testUser(), "id")

	resp := expect(ctx, t, a, api.GetUser.With(id), http.StatusOK)
	assert.Equal(t, "test_user", resp.Get("login").String())
}

func userFriends(ctx context.Context, t TestingT, a *api.API) {
	user := create(ctx, t, a, api.CreateUser, testUser(), "id")
	friend := create(ctx, t, a, api.CreateUser, with(testUser(), "login", "friend_user"), "id")

	expect(ctx, t, a, api.AddFriend.With(user, friend), http.StatusOK)
	friends := expect(ctx, t, a, api.ListFriends.With(user), http.StatusOK).JSON().Array()
	require.Len(t, friends, 1)
	assert.Equal(t, friend, friends[0].Get("id").Int())

	expect(ctx, t, a, api.RemoveFriend.With(user, friend), http.StatusOK)
	after := expect(ctx, t, a, api.ListFriends.With(user), http.StatusOK).JSON().Array()
	assert.Empty(t, after)
}

func userCommonFriends(ctx context.Context, t TestingT, a *api.API) {
	first := create(ctx, t, a, api.CreateUser, testUser(), "id")
	second := create(ctx, t, a, api.CreateUser, with(testUser(), "login", "user2"), "id")
	common := create(ctx, t, a, api.CreateUser, with(testUser(), "login", "common"), "id")

	expect(ctx, t, a, api.AddFriend.With(first, common), http.StatusOK)
	expect(ctx, t, a, api.AddFriend.With(second, common), http.StatusOK)

	shared := expect(ctx, t, a, api.CommonFriends.With(first, second), http.StatusOK).JSON().Array()
	require.Len(t, shared, 1)
	assert.Equal(t, common, shared[0].Get("id").Int())
}

func userValidation(ctx context.Context, t TestingT, a *api.API) {
	invalid := map[string]any{
		"email":    "invalid-email",
		"login":    " ",
		"birthday": "2050-01-01",
	}
	resp := expect(ctx, t, a, api.CreateUser.With().WithBody(invalid), http.StatusBadRequest)
	body := strings.ToLower(resp.Text())
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "past")
}

func userRecommendations(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateUser, testUser(), "id")

	resp := expect(ctx, t, a, api.Recommendations.With(id), http.StatusOK)
	assert.True(t, resp.JSON().IsArray(), "recommendations must be a list: %s", resp.Text())
}

func userFeed(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateUser, testUser(), "id")

	resp := expect(ctx, t, a, api.Feed.With(id), http.StatusOK)
	assert.True(t, resp.JSON().IsArray(), "feed must be a list: %s", resp.Text())
}

// userUpdate sends the full user as returned on creation with a new name.
func userUpdate(ctx context.Context, t TestingT, a *api.API) {
	resp := expect(ctx, t, a, api.CreateUser.With().WithBody(testUser()), http.StatusOK)
	user, ok := resp.JSON().Value().(map[string]any)
	require.True(t, ok, "user body is not an object: %s", resp.Text())

	updated := expect(ctx, t, a, api.UpdateUser.With().WithBody(with(user, "name", "Updated Name")), http.StatusOK)
	assert.Equal(t, "Updated Name", updated.Get("name").String())
}

func userDelete(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateUser, testUser(), "id")

	expect(ctx, t, a, api.DeleteUser.With(id), http.StatusOK)
	expect(ctx, t, a, api.GetUser.With(id), http.StatusNotFound)
}
