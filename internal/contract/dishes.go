package contract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/restarate/loadgen/internal/api"
)

var dishResources = []api.Resource{api.Dishes}

func dishScenarios() []Scenario {
	return []Scenario{
		{Name: "dishes/create-and-get", Resources: dishResources, Run: dishCreateAndGet},
		{Name: "dishes/update", Resources: dishResources, Run: dishUpdate},
		{Name: "dishes/like-and-popular", Resources: dishResources, Run: dishLikeAndPopular},
		{Name: "dishes/search", Resources: dishResources, Run: dishSearch},
		{Name: "dishes/author", Resources: dishResources, Run: dishAuthor},
		{Name: "dishes/validation", Resources: dishResources, Run: dishValidation},
		{Name: "dishes/delete", Resources: dishResources, Run: dishDelete},
		{Name: "dishes/common", Resources: dishResources, Run: dishCommon},
		{Name: "dishes/popular-filters", Resources: dishResources, Run: dishPopularFilters},
		{Name: "dishes/duplicate-like", Resources: dishResources, Run: dishDuplicateLike},
		{Name: "dishes/like-then-dislike", Resources: dishResources, Run: dishLikeThenDislike},
	}
}

func dishCreateAndGet(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")

	resp := expect(ctx, t, a, api.GetDish.With(id), http.StatusOK)
	assert.Equal(t, "Test Dish", resp.Get("name").String())
}

func dishUpdate(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")

	resp := expect(ctx, t, a, api.UpdateDish.With().WithBody(with(testDish(), "id", id, "name", "Updated Dish")), http.StatusOK)
	assert.Equal(t, "Updated Dish", resp.Get("name").String())
}

// A service that reports a likes count may keep ranking the dish after the
// like is withdrawn, but must report zero likes for it. One that does not
// report likes must drop the dish from the ranking.
func dishLikeAndPopular(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")
	const userID = 123

	expect(ctx, t, a, api.LikeDish.With(id, userID), http.StatusOK)
	popular := expect(ctx, t, a, api.PopularDishes.With().WithQuery("count", "1"), http.StatusOK).JSON()
	require.True(t, popular.IsArray())
	require.Len(t, popular.Array(), 1)
	assert.Equal(t, id, popular.Get("0.id").Int())
	if likes := popular.Get("0.likes"); likes.Exists() {
		assert.Equal(t, int64(1), likes.Int(), "likes after one like")
	}

	expect(ctx, t, a, api.UnlikeDish.With(id, userID), http.StatusOK)
	after := expect(ctx, t, a, api.PopularDishes.With().WithQuery("count", "1"), http.StatusOK).JSON()
	require.True(t, after.IsArray())
	require.LessOrEqual(t, len(after.Array()), 1)

	dish := expect(ctx, t, a, api.GetDish.With(id), http.StatusOK)
	if likes := dish.Get("likes"); likes.Exists() {
		assert.Equal(t, int64(0), likes.Int(), "likes after the like was withdrawn")
		if len(after.Array()) == 1 {
			assert.Equal(t, int64(0), after.Get("0.likes").Int(), "popular still counts the withdrawn like")
		}
		return
	}
	assert.Empty(t, after.Array(), "popular still lists a dish without likes")
}

func dishSearch(ctx context.Context, t TestingT, a *api.API) {
	for _, name := range []string{"Борщ Украинский", "Салат Цезарь"} {
		create(ctx, t, a, api.CreateDish, with(testDish(), "name", name), "id")
	}

	resp := expect(ctx, t, a, api.SearchDishes.With().WithQuery("query", "цезарь").WithQuery("by", "title"), http.StatusOK)
	found := false
	for _, name := range resp.Get("#.name").Array() {
		if strings.Contains(name.String(), "Цезарь") {
			found = true
		}
	}
	assert.True(t, found, "search for цезарь returned %s", resp.Text())
}

func dishAuthor(ctx context.Context, t TestingT, a *api.API) {
	const authorID = 1
	for range 3 {
		create(ctx, t, a, api.CreateDish, with(testDish(), "authors", []any{map[string]any{"id": authorID}}), "id")
	}

	resp := expect(ctx, t, a, api.AuthorDishes.With(authorID).WithQuery("sortBy", "name"), http.StatusOK)
	assert.Len(t, resp.JSON().Array(), 3)
}

func dishValidation(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")
	resp := expect(ctx, t, a, api.GetDish.With(id), http.StatusOK)
	assert.Equal(t, "Test Dish", resp.Get("name").String())

	resp = expect(ctx, t, a, api.CreateDish.With().WithBody(with(testDish(), "weight", -100)), http.StatusBadRequest)
	assert.Contains(t, strings.ToLower(resp.Text()), "positive")
}

func dishDelete(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")

	expect(ctx, t, a, api.DeleteDish.With(id), http.StatusOK)
	expect(ctx, t, a, api.GetDish.With(id), http.StatusNotFound)
}

func dishCommon(ctx context.Context, t TestingT, a *api.API) {
	const userID, friendID = 1, 2
	first := create(ctx, t, a, api.CreateDish, testDish(), "id")
	second := create(ctx, t, a, api.CreateDish, with(testDish(), "name", "Dish 2"), "id")

	expect(ctx, t, a, api.LikeDish.With(first, userID), http.StatusOK)
	expect(ctx, t, a, api.LikeDish.With(first, friendID), http.StatusOK)
	expect(ctx, t, a, api.LikeDish.With(second, userID), http.StatusOK)

	resp := expect(ctx, t, a, api.CommonDishes.With().
		WithQuery("userId", fmt.Sprint(userID)).
		WithQuery("friendId", fmt.Sprint(friendID)), http.StatusOK)
	assert.GreaterOrEqual(t, len(resp.JSON().Array()), 1)
}

func dishPopularFilters(ctx context.Context, t TestingT, a *api.API) {
	for i := range 15 {
		create(ctx, t, a, api.CreateDish, with(testDish(), "name", fmt.Sprintf("Dish %d", i)), "id")
	}

	resp := expect(ctx, t, a, api.PopularDishes.With().WithQuery("count", "5"), http.StatusOK)
	assert.Len(t, resp.JSON().Array(), 5)

	resp = expect(ctx, t, a, api.PopularDishes.With().WithQuery("year", "2023"), http.StatusOK)
	assert.NotEmpty(t, resp.JSON().Array())
}

func dishDuplicateLike(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")
	const userID = 456

	expect(ctx, t, a, api.LikeDish.With(id, userID), http.StatusOK)
	expect(ctx, t, a, api.LikeDish.With(id, userID), http.StatusConflict)
}

func dishLikeThenDislike(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateDish, testDish(), "id")
	const userID = 789

	expect(ctx, t, a, api.LikeDish.With(id, userID), http.StatusOK)
	expect(ctx, t, a, api.DislikeDish.With(id, userID), http.StatusConflict)
}
