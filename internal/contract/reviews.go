package contract

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/restarate/loadgen/internal/api"
)

var reviewResources = []api.Resource{api.Reviews}

func reviewScenarios() []Scenario {
	return []Scenario{
		{Name: "reviews/create-and-get", Resources: reviewResources, Run: reviewCreateAndGet},
		{Name: "reviews/update", Resources: reviewResources, Run: reviewUpdate},
		{Name: "reviews/delete", Resources: reviewResources, Run: reviewDelete},
		{Name: "reviews/list", Resources: reviewResources, Run: reviewList},
		{Name: "reviews/like-flow", Resources: reviewResources, Run: reviewLikeFlow},
		{Name: "reviews/validation", Resources: reviewResources, Run: reviewValidation},
		{Name: "reviews/duplicate-like", Resources: reviewResources, Run: reviewDuplicateLike},
		{Name: "reviews/like-then-dislike", Resources: reviewResources, Run: reviewLikeThenDislike},
		{Name: "reviews/structure", Resources: reviewResources, Run: reviewStructure},
	}
}

func reviewCreateAndGet(ctx context.Context, t TestingT, a *api.API) {
	resp := expect(ctx, t, a, api.CreateReview.With().WithBody(testReview()), http.StatusCreated)
	id := resp.Get("reviewId")
	require.True(t, id.Exists(), "created review has no reviewId: %s", resp.Text())

	got := expect(ctx, t, a, api.GetReview.With(id.Int()), http.StatusOK)
	assert.Equal(t, "Отличное блюдо!", got.Get("content").String())
}

func reviewUpdate(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateReview, testReview(), "reviewId")

	resp := expect(ctx, t, a, api.UpdateReview.With().
		WithBody(with(testReview(), "reviewId", id, "content", "Обновленный отзыв")), http.StatusOK)
	assert.Equal(t, "Обновленный отзыв", resp.Get("content").String())
}

func reviewDelete(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateReview, testReview(), "reviewId")

	expect(ctx, t, a, api.DeleteReview.With(id), http.StatusOK)
	expect(ctx, t, a, api.GetReview.With(id), http.StatusNotFound)
}

func reviewList(ctx context.Context, t TestingT, a *api.API) {
	for i := range 15 {
		dishID := 1
		if i >= 10 {
			dishID = 2
		}
		create(ctx, t, a, api.CreateReview, with(testReview(), "dishId", dishID), "reviewId")
	}

	filtered := expect(ctx, t, a, api.ListReviews.With().WithQuery("dishId", "1").WithQuery("count", "5"), http.StatusOK).JSON().Array()
	assert.Len(t, filtered, 5)
	for _, r := range filtered {
		assert.Equal(t, int64(1), r.Get("dishId").Int())
	}

	all := expect(ctx, t, a, api.ListReviews.With().WithQuery("count", "20"), http.StatusOK).JSON().Array()
	assert.Len(t, all, 15)
}

func reviewLikeFlow(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateReview, testReview(), "reviewId")
	const userID = 123

	expect(ctx, t, a, api.LikeReview.With(id, userID), http.StatusOK)
	resp := expect(ctx, t, a, api.GetReview.With(id), http.StatusOK)
	assert.Equal(t, int64(1), resp.Get("useful").Int())

	expect(ctx, t, a, api.UnlikeReview.With(id, userID), http.StatusOK)
	resp = expect(ctx, t, a, api.GetReview.With(id), http.StatusOK)
	assert.Equal(t, int64(0), resp.Get("useful").Int())
}

func reviewValidation(ctx context.Context, t TestingT, a *api.API) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"empty content", with(testReview(), "content", "")},
		{"sentiment not a bool", with(testReview(), "isPositive", "not_bool")},
		{"negative user", with(testReview(), "userId", -1)},
		{"zero dish", with(testReview(), "dishId", 0)},
		{"content too long", with(testReview(), "content", strings.Repeat("X", 201))},
	}
	for _, tc := range cases {
		resp := send(ctx, t, a, api.CreateReview.With().WithBody(tc.body))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s: %s", tc.name, resp.Text())
	}

	resp := expect(ctx, t, a, api.CreateReview.With().WithBody(with(testReview(), "content", strings.Repeat("X", 200))), http.StatusCreated)
	assert.True(t, resp.Get("reviewId").Exists())
}

func reviewDuplicateLike(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateReview, testReview(), "reviewId")
	const userID = 456

	expect(ctx, t, a, api.LikeReview.With(id, userID), http.StatusOK)
	expect(ctx, t, a, api.LikeReview.With(id, userID), http.StatusConflict)
}

func reviewLikeThenDislike(ctx context.Context, t TestingT, a *api.API) {
	id := create(ctx, t, a, api.CreateReview, testReview(), "reviewId")
	const userID = 789

	expect(ctx, t, a, api.LikeReview.With(id, userID), http.StatusOK)
	expect(ctx, t, a, api.DislikeReview.With(id, userID), http.StatusConflict)
}

func reviewStructure(ctx context.Context, t TestingT, a *api.API) {
	resp := expect(ctx, t, a, api.CreateReview.With().WithBody(testReview()), http.StatusCreated)

	var keys []string
	for k := range resp.JSON().Map() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	assert.Equal(t, []string{"content", "dishId", "isPositive", "reviewId", "useful", "userId"}, keys)
}
